// Package pipeline runs one patient submission through validation,
// preprocessing, classification and persistence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/alzdetect/internal/cache"
	"github.com/Brownie44l1/alzdetect/internal/imaging"
	"github.com/Brownie44l1/alzdetect/internal/model"
	"github.com/Brownie44l1/alzdetect/internal/store"
	"github.com/Brownie44l1/alzdetect/internal/validation"
)

// Submission is what the operator sent in one form post.
type Submission struct {
	Name    string
	Age     string
	Gender  string
	Contact string
	Image   []byte
}

func (s Submission) form() validation.Form {
	return validation.Form{
		Name:     s.Name,
		Age:      s.Age,
		Gender:   s.Gender,
		Contact:  s.Contact,
		HasImage: len(s.Image) > 0,
	}
}

type Preprocessor interface {
	Normalize(data []byte) (*imaging.NormalizedImage, error)
}

// PreprocessorFunc adapts a function to Preprocessor.
type PreprocessorFunc func(data []byte) (*imaging.NormalizedImage, error)

func (f PreprocessorFunc) Normalize(data []byte) (*imaging.NormalizedImage, error) {
	return f(data)
}

type Classifier interface {
	Classify(img *imaging.NormalizedImage) (*model.Prediction, error)
}

type Recorder interface {
	Insert(ctx context.Context, r store.Record) error
}

// Outcome reports classification and persistence independently: a
// Complete outcome always carries a prediction, whether or not the record
// was stored.
type Outcome struct {
	State State
	Trace []State

	// Err is set when State is Rejected or Failed.
	Err        error
	Prediction *model.Prediction
	Record     *store.Record

	Persisted  bool
	PersistErr error

	// ReportReady is true when the result was cached for report export.
	ReportReady bool
}

func (o *Outcome) enter(s State) {
	if !canTransition(o.State, s) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", o.State, s))
	}
	o.State = s
	o.Trace = append(o.Trace, s)
}

type Option func(*Pipeline)

func WithPreprocessor(p Preprocessor) Option {
	return func(pl *Pipeline) { pl.preprocessor = p }
}

// WithResultCache publishes completed results for report export.
func WithResultCache(c cache.Cache) Option {
	return func(pl *Pipeline) { pl.results = c }
}

func WithIDGenerator(f func() string) Option {
	return func(pl *Pipeline) { pl.newID = f }
}

func WithClock(f func() time.Time) Option {
	return func(pl *Pipeline) { pl.now = f }
}

// Pipeline holds the process-wide collaborators. Each Run is independent.
type Pipeline struct {
	preprocessor Preprocessor
	classifier   Classifier
	recorder     Recorder
	results      cache.Cache
	logger       *zap.Logger
	newID        func() string
	now          func() time.Time
}

func New(classifier Classifier, recorder Recorder, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		preprocessor: PreprocessorFunc(imaging.Normalize),
		classifier:   classifier,
		recorder:     recorder,
		logger:       logger,
		newID:        uuid.NewString,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives sub through the state machine to a terminal state.
func (p *Pipeline) Run(ctx context.Context, sub Submission) *Outcome {
	out := &Outcome{State: AwaitingSubmission, Trace: []State{AwaitingSubmission}}

	out.enter(Validating)
	patient, failure := validation.Parse(sub.form())
	if failure != nil {
		out.enter(Rejected)
		out.Err = failure.AsError()
		p.logger.Info("submission rejected", zap.String("rule", string(failure.Rule)))
		return out
	}

	out.enter(Preprocessing)
	img, err := p.preprocessor.Normalize(sub.Image)
	if err != nil {
		out.enter(Failed)
		out.Err = err
		p.logger.Warn("image preprocessing failed", zap.Error(err))
		return out
	}

	out.enter(Classifying)
	prediction, err := p.classifier.Classify(img)
	if err != nil {
		out.enter(Failed)
		out.Err = err
		p.logger.Error("classification failed", zap.Error(err))
		return out
	}
	out.Prediction = prediction

	record := store.Record{
		ID:         p.newID(),
		Name:       patient.Name,
		Age:        patient.Age,
		Gender:     patient.Gender,
		Contact:    patient.Contact,
		Prediction: string(prediction.Label),
		CreatedAt:  p.now(),
	}
	out.Record = &record
	logger := p.logger.With(zap.String("record_id", record.ID), zap.String("prediction", record.Prediction))

	out.enter(Persisting)
	if err := p.recorder.Insert(ctx, record); err != nil {
		out.PersistErr = err
		logger.Error("failed to persist prediction record", zap.Error(err))
	} else {
		out.Persisted = true
		logger.Info("prediction record inserted")
	}

	out.ReportReady = p.publish(ctx, logger, record, sub.Image)
	out.enter(Complete)
	return out
}

func (p *Pipeline) publish(ctx context.Context, logger *zap.Logger, record store.Record, upload []byte) bool {
	if p.results == nil {
		return false
	}
	scan, err := imaging.EncodePNG(upload)
	if err != nil {
		logger.Warn("failed to encode scan for report", zap.Error(err))
		return false
	}
	if err := p.results.Put(ctx, cache.Entry{Record: record, ImagePNG: scan}); err != nil {
		logger.Warn("failed to cache result for report", zap.Error(err))
		return false
	}
	return true
}
