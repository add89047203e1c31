// Package cycle implements the outer active-learning loop: train on the
// labeled pool, validate, and when validation recall stagnates past the
// patience window, run the configured sampling strategy, promote the
// selected unlabeled indices, rebuild the loaders, and carry on until the
// labeled fraction crosses the stop threshold.
package cycle

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/activepool/go-activelearn/checkpoints"
	"github.com/activepool/go-activelearn/config"
	"github.com/activepool/go-activelearn/pool"
	"github.com/activepool/go-activelearn/sampling"
	"github.com/activepool/go-activelearn/training"
)

// ModelFactory creates a fresh model and trainer pair. The controller
// calls it once at startup and again after each sampling event when model
// reset is configured.
type ModelFactory func() (training.Model, training.Trainer, error)

// Result summarizes a finished run.
type Result struct {
	BestRecall   float64
	BestReport   *training.Report
	LastEpoch    int
	LabeledCount int
	History      *History
}

// Controller owns the labeled/unlabeled index sequences and drives the
// cycle state machine. The sequences are handed by reference to the
// sampler and the pool for the duration of one cycle only; promotion
// returns fresh slices, so nothing retains a view across cycles.
type Controller struct {
	cfg   *config.Config
	dsCfg config.DatasetConfig

	baseDataset  training.Dataset // hidden ground truth, used for audits only
	trainDataset training.Dataset // current view, relabeled under pseudo-labeling
	valDataset   training.Dataset

	factory   ModelFactory
	strategy  sampling.Strategy
	pseudo    *sampling.PseudoLabeler
	store     *checkpoints.Store
	scheduler training.LRScheduler
	logger    *slog.Logger

	model     training.Model
	trainer   training.Trainer
	criterion *training.Criterion
	rng       *rand.Rand

	labeled   []int
	unlabeled []int
	labelMap  *pool.LabelMap

	trainLoader     *training.DataLoader
	unlabeledLoader *training.DataLoader
	valLoader       *training.DataLoader

	progress       bool
	state          State
	startEpoch     int
	bestRecall     float64
	bestReport     *training.Report
	bestState      []byte
	lastBestEpochs int
	history        *History
}

// Option configures a Controller.
type Option func(*Controller)

// WithStrategy sets the active-learning sampling strategy.
func WithStrategy(s sampling.Strategy) Option {
	return func(c *Controller) { c.strategy = s }
}

// WithPseudoLabeler switches the controller to the semi-supervised path:
// promoted examples are assigned the model's predicted class instead of
// their hidden label. Requires a train dataset with the Relabelable
// capability.
func WithPseudoLabeler(p *sampling.PseudoLabeler) Option {
	return func(c *Controller) { c.pseudo = p }
}

// WithCheckpointStore enables per-epoch checkpointing and resume.
func WithCheckpointStore(s *checkpoints.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithScheduler sets the learning-rate schedule pushed to the trainer.
func WithScheduler(s training.LRScheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithLogger sets the structured logger. Defaults to a text handler on
// stderr.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithProgress enables a console progress bar over the batches of each
// training epoch, in addition to the periodic log lines.
func WithProgress() Option {
	return func(c *Controller) { c.progress = true }
}

// NewController builds a controller over the given datasets: the initial
// labeled/unlabeled partition is a seeded stratified split, loaders are
// built, and the model comes from the factory. Exactly one of WithStrategy
// or WithPseudoLabeler must be supplied.
func NewController(cfg *config.Config, dsCfg config.DatasetConfig, trainDataset, valDataset training.Dataset, factory ModelFactory, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	c := &Controller{
		cfg:          cfg,
		dsCfg:        dsCfg,
		baseDataset:  trainDataset,
		trainDataset: trainDataset,
		valDataset:   valDataset,
		factory:      factory,
		labelMap:     pool.NewLabelMap(),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		startEpoch:   cfg.StartEpoch,
	}
	for _, opt := range opts {
		opt(c)
	}

	if (c.strategy == nil) == (c.pseudo == nil) {
		return nil, fmt.Errorf("exactly one of a sampling strategy or a pseudo labeler must be configured")
	}
	if c.pseudo != nil {
		if _, ok := trainDataset.(training.Relabelable); !ok {
			return nil, fmt.Errorf("pseudo-labeling requires a relabelable train dataset")
		}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	labels, err := datasetLabels(trainDataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset labels: %v", err)
	}
	c.labeled, c.unlabeled, err = pool.StratifiedSplit(c.rng, labels, dsCfg.NumClasses(), dsCfg.StartLabeled)
	if err != nil {
		return nil, fmt.Errorf("failed to build initial split: %v", err)
	}

	c.model, c.trainer, err = factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %v", err)
	}

	if err := c.rebuildLoaders(); err != nil {
		return nil, err
	}
	if err := c.recomputeCriterion(); err != nil {
		return nil, err
	}

	c.history = NewHistory(cfg.ModelName(), cfg.Dataset, cfg.Seed)

	if cfg.Resume {
		c.resume()
	}

	return c, nil
}

// Labeled returns a copy of the current labeled index sequence.
func (c *Controller) Labeled() []int {
	out := make([]int, len(c.labeled))
	copy(out, c.labeled)
	return out
}

// Unlabeled returns a copy of the current unlabeled index sequence.
func (c *Controller) Unlabeled() []int {
	out := make([]int, len(c.unlabeled))
	copy(out, c.unlabeled)
	return out
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// History returns the run history collected so far.
func (c *Controller) History() *History {
	return c.history
}

// resume restores the best checkpoint when one exists. A missing
// checkpoint is logged and ignored: training proceeds from scratch.
func (c *Controller) resume() {
	if c.store == nil {
		return
	}
	cp, err := c.store.LoadBest()
	if err != nil {
		c.logger.Warn("no checkpoint found, training from scratch", "dir", c.store.Dir(), "error", err)
		return
	}

	c.startEpoch = cp.Epoch
	c.bestRecall = cp.BestRecall
	c.bestState = cp.ModelState
	if snap, ok := c.model.(training.Snapshotter); ok && cp.ModelState != nil {
		if err := snap.LoadStateDict(cp.ModelState); err != nil {
			c.logger.Warn("failed to restore model state", "error", err)
		}
	}
	c.logger.Info("resumed from checkpoint", "epoch", cp.Epoch, "best_recall", cp.BestRecall)
}

// Run drives the epoch loop to completion and returns the best result.
func (c *Controller) Run() (*Result, error) {
	stopLabeled := int(c.cfg.StopLabeledRatio * float64(c.trainDataset.Len()))
	lastEpoch := c.startEpoch

	c.logger.Info("starting training",
		"name", c.cfg.ModelName(),
		"dataset", c.cfg.Dataset,
		"labeled", len(c.labeled),
		"unlabeled", len(c.unlabeled),
		"stop_labeled", stopLabeled,
	)

	for epoch := c.startEpoch; epoch < c.cfg.Epochs; epoch++ {
		lastEpoch = epoch
		if epoch <= c.cfg.LabeledWarmupEpochs {
			c.state = StateWarmup
		} else {
			c.state = StateTraining
		}

		trainLoss, trainAcc, trainPerClass, err := c.trainEpoch(epoch)
		if err != nil {
			return nil, fmt.Errorf("training epoch %d failed: %v", epoch, err)
		}

		c.state = StateEvaluating
		report, valLoss, valPerClass, err := c.validate(epoch)
		if err != nil {
			return nil, fmt.Errorf("validation at epoch %d failed: %v", epoch, err)
		}

		isBest := report.MacroRecall > c.bestRecall
		if isBest {
			c.lastBestEpochs = 0
		} else {
			c.lastBestEpochs++
		}

		c.history.RecordEpoch(EpochRecord{
			Epoch:            epoch,
			TrainLoss:        trainLoss,
			TrainAccuracy:    trainAcc,
			ValLoss:          valLoss,
			TrainLossByClass: trainPerClass,
			ValLossByClass:   valPerClass,
			Report:           report,
			LabeledCount:     len(c.labeled),
			EpochsSinceBest:  c.lastBestEpochs,
		})

		if shouldSample(epoch, c.cfg.LabeledWarmupEpochs, c.lastBestEpochs, c.cfg.AddLabeledEpochs) {
			c.state = StateSampling
			if err := c.performSampling(epoch); err != nil {
				return nil, fmt.Errorf("sampling at epoch %d failed: %v", epoch, err)
			}
			c.lastBestEpochs = 0

			if c.cfg.ResetModel {
				c.model, c.trainer, err = c.factory()
				if err != nil {
					return nil, fmt.Errorf("model reset failed: %v", err)
				}
			}
			if err := c.recomputeCriterion(); err != nil {
				return nil, err
			}
		} else {
			c.state = StateStable
			if isBest {
				c.bestRecall = report.MacroRecall
				c.bestReport = report
				c.snapshotBest()
			}
		}

		if err := c.saveCheckpoint(epoch, isBest); err != nil {
			return nil, err
		}

		if len(c.labeled) > stopLabeled {
			break
		}
	}

	c.state = StateDone

	if c.cfg.LogPath != "" {
		if err := c.history.Store(c.cfg.LogPath); err != nil {
			c.logger.Warn("failed to store run logs", "error", err)
		}
	}

	return &Result{
		BestRecall:   c.bestRecall,
		BestReport:   c.bestReport,
		LastEpoch:    lastEpoch,
		LabeledCount: len(c.labeled),
		History:      c.history,
	}, nil
}

// trainEpoch runs one training pass over the labeled loader.
func (c *Controller) trainEpoch(epoch int) (avgLoss, avgAcc float64, perClass []float64, err error) {
	losses := training.NewAverageMeter()
	top1 := training.NewAverageMeter()
	lossesPerClass := training.NewLossPerClassMeter(c.dsCfg.NumClasses())

	c.model.Train()
	c.applySchedule(epoch)

	var bar *training.ProgressBar
	if c.progress {
		bar = training.NewProgressBar(fmt.Sprintf("Epoch %d", epoch), c.trainLoader.Len())
	}

	c.trainLoader.Reset()
	for i := 0; c.trainLoader.HasNext(); i++ {
		batch, err := c.trainLoader.Next()
		if err != nil {
			return 0, 0, nil, err
		}
		if batch == nil {
			break
		}

		logits, err := c.trainer.Step(batch.Inputs, batch.Labels)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("trainer step failed: %v", err)
		}

		exampleLosses, err := c.criterion.PerExample(logits, batch.Labels)
		if err != nil {
			return 0, 0, nil, err
		}
		lossesPerClass.Update(exampleLosses, batch.Labels)
		losses.Update(training.Mean(exampleLosses), batch.Size())
		top1.Update(batchAccuracy(logits, batch.Labels), batch.Size())

		if bar != nil {
			bar.Update(i+1, map[string]float64{"loss": losses.Avg, "acc": top1.Avg})
		}

		if c.cfg.PrintFreq > 0 && i%c.cfg.PrintFreq == 0 {
			c.logger.Info("train",
				"epoch", epoch,
				"batch", fmt.Sprintf("%d/%d", i, c.trainLoader.Len()),
				"loss", losses.Val,
				"loss_avg", losses.Avg,
				"acc", top1.Avg,
				"last_best_epoch", c.lastBestEpochs,
			)
		}
	}

	if bar != nil {
		bar.Finish()
	}

	return losses.Avg, top1.Avg, lossesPerClass.Averages(), nil
}

// validate runs one evaluation pass over the held-out loader and returns
// the classification report whose macro recall drives the cycle decision.
func (c *Controller) validate(epoch int) (report *training.Report, avgLoss float64, perClass []float64, err error) {
	losses := training.NewAverageMeter()
	top1 := training.NewAverageMeter()
	lossesPerClass := training.NewLossPerClassMeter(c.dsCfg.NumClasses())
	cm := training.NewConfusionMatrix(c.dsCfg.NumClasses())

	c.model.Eval()

	c.valLoader.Reset()
	for i := 0; c.valLoader.HasNext(); i++ {
		batch, err := c.valLoader.Next()
		if err != nil {
			return nil, 0, nil, err
		}
		if batch == nil {
			break
		}

		logits, _, err := c.model.Forward(batch.Inputs)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("validation forward failed: %v", err)
		}

		exampleLosses, err := c.criterion.PerExample(logits, batch.Labels)
		if err != nil {
			return nil, 0, nil, err
		}
		lossesPerClass.Update(exampleLosses, batch.Labels)
		losses.Update(training.Mean(exampleLosses), batch.Size())
		top1.Update(batchAccuracy(logits, batch.Labels), batch.Size())

		if err := cm.AddBatch(logits, batch.Labels); err != nil {
			return nil, 0, nil, err
		}
	}

	report = cm.GetReport(c.dsCfg.Classes)
	c.logger.Info("validate",
		"epoch", epoch,
		"acc", top1.Avg,
		"precision", report.MacroPrecision,
		"recall", report.MacroRecall,
		"loss", losses.Avg,
	)

	return report, losses.Avg, lossesPerClass.Averages(), nil
}

// performSampling runs the configured selector over the unlabeled window,
// promotes the selected indices, audits the partition, and rebuilds the
// loaders. The scoring pass is fully drained before any index mutation.
func (c *Controller) performSampling(epoch int) error {
	number := c.dsCfg.AddLabeledNum
	if n := c.unlabeledLoader.NumExamples(); number > n {
		number = n
	}

	pseudoAcc := -1.0

	if c.pseudo != nil {
		var err error
		pseudoAcc, err = c.pseudoLabel(epoch, number)
		if err != nil {
			return err
		}
	} else {
		positions, err := c.strategy.GetSamples(epoch, c.model, c.trainLoader, c.unlabeledLoader, number)
		if err != nil {
			return fmt.Errorf("strategy %v failed: %v", c.strategy.Method(), err)
		}
		// Positions into the window are positions into the shuffled
		// unlabeled sequence: the window is its prefix.
		c.labeled, c.unlabeled = pool.Promote(c.labeled, c.unlabeled, positions)
	}

	if err := pool.Validate(c.labeled, c.unlabeled); err != nil {
		return fmt.Errorf("partition invariant breached after promotion: %v", err)
	}

	if err := c.rebuildLoaders(); err != nil {
		return err
	}

	classCounts, err := c.labeledClassCounts()
	if err != nil {
		return err
	}
	ratio := float64(len(c.labeled)) / float64(c.trainDataset.Len())
	c.history.RecordCycle(CycleRecord{
		Epoch:          epoch,
		LabeledCount:   len(c.labeled),
		LabeledRatio:   ratio,
		BestReport:     c.bestReport,
		ClassCounts:    classCounts,
		PseudoAccuracy: pseudoAcc,
	})

	method := "pseudo_label"
	if c.strategy != nil {
		method = c.strategy.Method().String()
	}
	c.logger.Info("sampling",
		"epoch", epoch,
		"method", method,
		"labeled", len(c.labeled),
		"labeled_ratio", ratio,
		"pseudo_accuracy", pseudoAcc,
		"model_reset", c.cfg.ResetModel,
	)

	return nil
}

// pseudoLabel selects the most confident unlabeled examples, assigns them
// the model's predicted class, relabels the training view copy-on-write,
// and promotes. Returns the fraction of assignments agreeing with the
// hidden truth (diagnostic only).
func (c *Controller) pseudoLabel(epoch, number int) (float64, error) {
	positions, assigned, err := c.pseudo.GetSamples(epoch, c.bestScoringModel(), c.unlabeledLoader, number)
	if err != nil {
		return 0, fmt.Errorf("pseudo labeling failed: %v", err)
	}

	window := c.unlabeledLoader.Indices()
	datasetIndices := make([]int, len(positions))
	for i, pos := range positions {
		datasetIndices[i] = window[pos]
	}

	c.labelMap, err = c.labelMap.With(datasetIndices, assigned)
	if err != nil {
		return 0, err
	}

	matches := 0
	for i, idx := range datasetIndices {
		_, truth, err := c.baseDataset.Get(idx)
		if err != nil {
			return 0, fmt.Errorf("failed to read ground truth at index %d: %v", idx, err)
		}
		if truth == assigned[i] {
			matches++
		}
	}
	pseudoAcc := 0.0
	if len(datasetIndices) > 0 {
		pseudoAcc = float64(matches) / float64(len(datasetIndices))
	}

	relabelable := c.baseDataset.(training.Relabelable) // checked at construction
	c.trainDataset, err = relabelable.Relabel(c.labelMap.Assignments())
	if err != nil {
		return 0, fmt.Errorf("failed to relabel training view: %v", err)
	}

	c.labeled, c.unlabeled = pool.Promote(c.labeled, c.unlabeled, positions)
	return pseudoAcc, nil
}

// bestScoringModel returns a model loaded with the best snapshot for
// pseudo-label scoring, falling back to the live model when snapshots are
// unavailable.
func (c *Controller) bestScoringModel() training.Model {
	if c.bestState == nil {
		return c.model
	}
	model, _, err := c.factory()
	if err != nil {
		return c.model
	}
	snap, ok := model.(training.Snapshotter)
	if !ok {
		return c.model
	}
	if err := snap.LoadStateDict(c.bestState); err != nil {
		return c.model
	}
	return model
}

// rebuildLoaders reconstructs the three loaders after any change to the
// index sequences. The unlabeled sequence is reshuffled and its leading
// window of at most UnlabeledSubsetNum entries becomes the scoring view.
func (c *Controller) rebuildLoaders() error {
	var window []int
	c.unlabeled, window = pool.Window(c.rng, c.unlabeled, c.dsCfg.UnlabeledSubsetNum)

	var err error
	c.trainLoader, err = training.NewDataLoader(c.trainDataset, c.labeled, c.cfg.BatchSize, true, c.cfg.NumWorkers, c.rng.Int63())
	if err != nil {
		return fmt.Errorf("failed to build labeled loader: %v", err)
	}
	c.unlabeledLoader, err = training.NewDataLoader(c.trainDataset, window, c.cfg.BatchSize, false, c.cfg.NumWorkers, c.rng.Int63())
	if err != nil {
		return fmt.Errorf("failed to build unlabeled loader: %v", err)
	}
	c.valLoader, err = training.NewDataLoader(c.valDataset, nil, c.cfg.BatchSize, true, c.cfg.NumWorkers, c.rng.Int63())
	if err != nil {
		return fmt.Errorf("failed to build validation loader: %v", err)
	}
	return nil
}

// recomputeCriterion rebuilds the loss criterion; with weighted loss the
// class weights follow the labeled class distribution, which shifts after
// every promotion.
func (c *Controller) recomputeCriterion() error {
	if !c.cfg.Weighted {
		c.criterion = training.NewCriterion()
		return nil
	}

	weights, err := training.ClassWeights(c.trainDataset, c.labeled, c.dsCfg.NumClasses())
	if err != nil {
		return fmt.Errorf("failed to compute class weights: %v", err)
	}
	c.criterion = training.NewWeightedCriterion(weights)
	if wt, ok := c.trainer.(training.WeightedTrainer); ok {
		wt.SetClassWeights(weights)
	}
	return nil
}

// applySchedule pushes the scheduled learning rate to the trainer when
// both the schedule and the tunable capability are present.
func (c *Controller) applySchedule(epoch int) {
	if c.scheduler == nil {
		return
	}
	tt, ok := c.trainer.(training.TunableTrainer)
	if !ok {
		return
	}
	step := epoch * c.trainLoader.Len()
	tt.SetLearningRate(c.scheduler.GetLR(epoch, step, c.cfg.BaseLR))
}

// saveCheckpoint persists the best model state after the epoch.
func (c *Controller) saveCheckpoint(epoch int, isBest bool) error {
	if c.store == nil {
		return nil
	}
	err := c.store.Save(&checkpoints.Checkpoint{
		Epoch:      epoch + 1,
		BestRecall: c.bestRecall,
		ModelState: c.bestState,
	}, isBest)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %v", err)
	}
	return nil
}

// snapshotBest captures the current model state as the best snapshot.
func (c *Controller) snapshotBest() {
	snap, ok := c.model.(training.Snapshotter)
	if !ok {
		return
	}
	state, err := snap.StateDict()
	if err != nil {
		c.logger.Warn("failed to snapshot best model", "error", err)
		return
	}
	c.bestState = state
}

// labeledClassCounts counts labeled examples per class in the current
// training view.
func (c *Controller) labeledClassCounts() ([]int, error) {
	counts := make([]int, c.dsCfg.NumClasses())
	for _, idx := range c.labeled {
		_, label, err := c.trainDataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read label at index %d: %v", idx, err)
		}
		counts[label]++
	}
	return counts, nil
}

// batchAccuracy returns the top-1 accuracy of a batch of logits.
func batchAccuracy(logits [][]float32, labels []int) float64 {
	if len(logits) == 0 {
		return 0
	}
	correct := 0
	for i, row := range logits {
		if training.Argmax(row) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(logits))
}

// datasetLabels reads every label of a dataset in index order.
func datasetLabels(dataset training.Dataset) ([]int, error) {
	labels := make([]int, dataset.Len())
	for i := range labels {
		_, label, err := dataset.Get(i)
		if err != nil {
			return nil, err
		}
		labels[i] = label
	}
	return labels, nil
}
