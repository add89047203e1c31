// Command altrain runs the active-learning training cycle end to end on a
// synthetic classification problem shaped like one of the registered
// dataset configurations. It exercises every sampling method and the
// pseudo-labeling path with a softmax regression model.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/activepool/go-activelearn/checkpoints"
	"github.com/activepool/go-activelearn/config"
	"github.com/activepool/go-activelearn/cycle"
	"github.com/activepool/go-activelearn/sampling"
	"github.com/activepool/go-activelearn/training"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFlags struct {
	cfg       config.Config
	trainSize int
	valSize   int
	noise     float64
	gzip      bool
	verbose   bool
	progress  bool
}

func newRootCmd() *cobra.Command {
	flags := runFlags{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:   "altrain",
		Short: "Active-learning training cycle runner",
		Long: `altrain trains a classifier with an active-learning loop: it starts
from a small stratified labeled set, trains until validation recall
stagnates, then scores a window of the unlabeled pool with the chosen
sampling method and promotes the most informative examples.

Available methods: ` + methodList() + `, pseudo_label.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.cfg.Name, "name", "", "experiment name (default dataset@method)")
	f.StringVar(&flags.cfg.Dataset, "dataset", flags.cfg.Dataset, "dataset configuration: "+datasetList())
	f.StringVar(&flags.cfg.Method, "method", flags.cfg.Method, "sampling method or pseudo_label")
	f.Int64Var(&flags.cfg.Seed, "seed", flags.cfg.Seed, "random seed")
	f.IntVar(&flags.cfg.Epochs, "epochs", flags.cfg.Epochs, "total number of epochs")
	f.IntVar(&flags.cfg.StartEpoch, "start-epoch", flags.cfg.StartEpoch, "first epoch (overridden on resume)")
	f.IntVar(&flags.cfg.BatchSize, "batch-size", flags.cfg.BatchSize, "mini-batch size")
	f.IntVar(&flags.cfg.NumWorkers, "workers", flags.cfg.NumWorkers, "data loading workers per batch")
	f.Float64Var(&flags.cfg.BaseLR, "lr", flags.cfg.BaseLR, "base learning rate")
	f.IntVar(&flags.cfg.PrintFreq, "print-freq", flags.cfg.PrintFreq, "batches between progress lines")
	f.IntVar(&flags.cfg.LabeledWarmupEpochs, "labeled-warmup-epochs", flags.cfg.LabeledWarmupEpochs, "epochs before sampling may trigger")
	f.IntVar(&flags.cfg.AddLabeledEpochs, "add-labeled-epochs", flags.cfg.AddLabeledEpochs, "patience in epochs without a new best recall")
	f.Float64Var(&flags.cfg.StopLabeledRatio, "stop-labeled-ratio", flags.cfg.StopLabeledRatio, "stop once the labeled fraction exceeds this")
	f.BoolVar(&flags.cfg.ResetModel, "reset-model", flags.cfg.ResetModel, "recreate the model after each sampling cycle")
	f.BoolVar(&flags.cfg.Weighted, "weighted", flags.cfg.Weighted, "class-weighted loss over the labeled distribution")
	f.IntVar(&flags.cfg.MCDropoutIterations, "mc-dropout-iterations", flags.cfg.MCDropoutIterations, "stochastic passes for mc_dropout and batch_bald")
	f.IntVar(&flags.cfg.AugmentationRounds, "augmentation-rounds", flags.cfg.AugmentationRounds, "perturbed passes for augmentations_based")
	f.Float64Var(&flags.cfg.PseudoLabelingThreshold, "pseudo-threshold", flags.cfg.PseudoLabelingThreshold, "minimum confidence for a pseudo label")
	f.StringVar(&flags.cfg.CheckpointPath, "checkpoint-path", flags.cfg.CheckpointPath, "checkpoint root directory (empty disables)")
	f.StringVar(&flags.cfg.LogPath, "log-path", flags.cfg.LogPath, "run log directory (empty disables)")
	f.BoolVar(&flags.cfg.Resume, "resume", false, "resume from the best checkpoint")
	f.IntVar(&flags.trainSize, "train-size", 10000, "synthetic training set size")
	f.IntVar(&flags.valSize, "val-size", 2000, "synthetic validation set size")
	f.Float64Var(&flags.noise, "noise", 1.0, "synthetic cluster noise")
	f.BoolVar(&flags.gzip, "gzip", false, "gzip-compress checkpoints")
	f.BoolVar(&flags.verbose, "verbose", false, "per-batch scoring progress")
	f.BoolVar(&flags.progress, "progress", false, "console progress bar per training epoch")

	return cmd
}

func run(flags runFlags) error {
	cfg := flags.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	dsCfg, err := config.DatasetByName(cfg.Dataset)
	if err != nil {
		return err
	}
	if flags.trainSize <= dsCfg.StartLabeled {
		return fmt.Errorf("train size %d must exceed the initial labeled size %d", flags.trainSize, dsCfg.StartLabeled)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	trainDataset, err := blobDataset(dsCfg, flags.trainSize, dsCfg.InputSize, flags.noise, cfg.Seed)
	if err != nil {
		return fmt.Errorf("failed to build training data: %v", err)
	}
	valDataset, err := blobDataset(dsCfg, flags.valSize, dsCfg.InputSize, flags.noise, cfg.Seed+1)
	if err != nil {
		return fmt.Errorf("failed to build validation data: %v", err)
	}

	factory := func() (training.Model, training.Trainer, error) {
		model := newLinearModel(dsCfg.InputSize, dsCfg.NumClasses(), cfg.BaseLR, cfg.Seed)
		return model, model, nil
	}

	opts := []cycle.Option{cycle.WithLogger(logger)}
	if flags.progress {
		opts = append(opts, cycle.WithProgress())
	}

	if cfg.Method == "pseudo_label" {
		opts = append(opts, cycle.WithPseudoLabeler(sampling.NewPseudoLabeler(cfg.PseudoLabelingThreshold)))
	} else {
		method, err := sampling.ParseMethod(cfg.Method)
		if err != nil {
			return err
		}
		strategy, err := sampling.New(method, sampling.Options{
			Iterations: cfg.MCDropoutIterations,
			Augmenter:  noiseAugmenter{scale: flags.noise / 2, seed: cfg.Seed},
			Rounds:     cfg.AugmentationRounds,
			Predictor:  featureSpreadPredictor{},
			Seed:       cfg.Seed,
			Verbose:    flags.verbose,
		})
		if err != nil {
			return err
		}
		opts = append(opts, cycle.WithStrategy(strategy))
	}

	if cfg.CheckpointPath != "" {
		format := checkpoints.FormatJSON
		if flags.gzip {
			format = checkpoints.FormatJSONGzip
		}
		store, err := checkpoints.NewStore(cfg.CheckpointPath, cfg.ModelName(), format)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint store: %v", err)
		}
		opts = append(opts, cycle.WithCheckpointStore(store))
	}

	controller, err := cycle.NewController(&cfg, dsCfg, trainDataset, valDataset, factory, opts...)
	if err != nil {
		return err
	}

	result, err := controller.Run()
	if err != nil {
		return err
	}

	logger.Info("finished",
		"best_recall", result.BestRecall,
		"last_epoch", result.LastEpoch,
		"labeled", result.LabeledCount,
	)
	if cfg.LogPath != "" {
		logger.Info("run logs stored", "dir", filepath.Clean(cfg.LogPath))
	}
	return nil
}

func methodList() string {
	names := sampling.MethodNames()
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}

func datasetList() string {
	names := config.DatasetNames()
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}
