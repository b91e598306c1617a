package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/logfields"
	"github.com/fairspec/profilepub/internal/metrics"
)

// Settings locates the template tree and the published copies.
type Settings struct {
	TemplateDir string
	OutputRoot  string

	// BaseURL is the absolute URL tags are published under,
	// e.g. https://fairspec.org/profiles.
	BaseURL   string
	LatestTag string
	Rules     Rules
}

// Release identifies what is being published.
type Release struct {
	Version string
	Commit  string
}

// Publisher produces the per-tag published copies of the template tree.
type Publisher struct {
	settings Settings
	recorder metrics.Recorder
	observer Observer
	newRunID func() string
	now      func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Publisher) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithObserver adds a progress observer. Multiple observers are called in order.
func WithObserver(o Observer) Option {
	return func(p *Publisher) {
		if o == nil {
			return
		}
		if existing, ok := p.observer.(Observers); ok {
			p.observer = append(existing, o)
			return
		}
		p.observer = Observers{o}
	}
}

// NewPublisher validates settings and returns a Publisher.
// An empty rule table selects DefaultRules and an empty latest tag selects
// DefaultLatestTag.
func NewPublisher(settings Settings, opts ...Option) (*Publisher, error) {
	if settings.LatestTag == "" {
		settings.LatestTag = DefaultLatestTag
	}
	if len(settings.Rules) == 0 {
		settings.Rules = DefaultRules()
	}
	if settings.TemplateDir == "" || settings.OutputRoot == "" {
		return nil, ferrors.ConfigError("template and output directories are required").Build()
	}
	if settings.BaseURL == "" {
		return nil, ferrors.ConfigError("profiles base URL is required").Build()
	}
	if err := ValidateVersion(settings.LatestTag, ""); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid latest tag").Fatal().Build()
	}
	if err := settings.Rules.Validate(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid rule table").Fatal().Build()
	}
	if nested, err := isWithin(settings.TemplateDir, settings.OutputRoot); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot resolve profile directories").Fatal().Build()
	} else if nested {
		return nil, ferrors.ConfigError("output root must not be inside the template directory").
			WithContext("template_dir", settings.TemplateDir).
			WithContext("output_root", settings.OutputRoot).
			Build()
	}

	p := &Publisher{
		settings: settings,
		recorder: metrics.NoopRecorder{},
		observer: NoopObserver{},
		newRunID: func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Settings returns the effective settings, defaults applied.
func (p *Publisher) Settings() Settings { return p.settings }

// Tags returns the tags a run for version publishes, in run order.
func (p *Publisher) Tags(version string) []string {
	return []string{version, p.settings.LatestTag}
}

// TagRoot returns the directory holding the published copy for tag.
func (p *Publisher) TagRoot(tag string) string {
	return filepath.Join(p.settings.OutputRoot, tag)
}

type tagRun struct {
	runID  string
	tag    string
	root   string
	report *TagReport
}

type step struct {
	name StepName
	fn   func(ctx context.Context, tr *tagRun) error
}

// Publish cleans, copies and rewrites the published copy for every tag of rel.
// The returned report is non-nil even on failure and covers the tags
// completed so far.
func (p *Publisher) Publish(ctx context.Context, rel Release) (*Report, error) {
	report := &Report{
		RunID:     p.newRunID(),
		Version:   rel.Version,
		Commit:    rel.Commit,
		StartedAt: p.now(),
	}

	if err := ValidateVersion(rel.Version, p.settings.LatestTag); err != nil {
		return report, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid release version").
			Fatal().
			WithContext("version", rel.Version).
			Build()
	}

	report.Planned = p.Tags(rel.Version)

	logger := slog.With(logfields.RunID(report.RunID), logfields.Version(rel.Version))
	logger.Info("Publishing profiles",
		logfields.Path(p.settings.TemplateDir),
		slog.String("output_root", p.settings.OutputRoot))

	start := time.Now()
	p.observer.OnRunStart(report)
	err := p.run(ctx, report, logger)
	report.Duration = time.Since(start)

	p.recorder.ObserveRunDuration(report.Duration)
	switch {
	case err == nil:
		p.recorder.IncRunOutcome(metrics.ResultSuccess)
		logger.Info("Profiles published",
			slog.Any("tags", report.TagNames()),
			logfields.Count(report.TotalReplacements()),
			logfields.DurationMS(float64(report.Duration.Milliseconds())))
	case ctx.Err() != nil:
		p.recorder.IncRunOutcome(metrics.ResultCanceled)
	default:
		p.recorder.IncRunOutcome(metrics.ResultFailed)
	}

	p.observer.OnRunComplete(report, err)
	return report, err
}

func (p *Publisher) run(ctx context.Context, report *Report, logger *slog.Logger) error {
	steps := []step{
		{name: StepClean, fn: p.clean},
		{name: StepCopy, fn: p.copy},
		{name: StepRewrite, fn: p.rewrite},
	}

	for _, tag := range report.Planned {
		t0 := time.Now()
		tr := &tagRun{
			runID:  report.RunID,
			tag:    tag,
			root:   p.TagRoot(tag),
			report: &TagReport{Tag: tag, Root: p.TagRoot(tag), Replacements: map[string]int{}},
		}

		for _, st := range steps {
			if err := ctx.Err(); err != nil {
				p.recorder.IncStepResult(string(st.name), metrics.ResultCanceled)
				return classify(&PublishError{Step: st.name, Tag: tag, Path: tr.root, Err: err})
			}

			p.observer.OnStepStart(report.RunID, tag, st.name)
			s0 := time.Now()
			err := st.fn(ctx, tr)
			d := time.Since(s0)
			p.recorder.ObserveStepDuration(string(st.name), d)
			p.observer.OnStepComplete(report.RunID, tag, st.name, d, err)

			if err != nil {
				p.recorder.IncStepResult(string(st.name), metrics.ResultFailed)
				logger.Error("Publish step failed",
					logfields.Tag(tag),
					logfields.Step(string(st.name)),
					logfields.Error(err))
				var pe *PublishError
				if errors.As(err, &pe) {
					return classify(pe)
				}
				return classify(&PublishError{Step: st.name, Tag: tag, Path: tr.root, Err: err})
			}
			p.recorder.IncStepResult(string(st.name), metrics.ResultSuccess)
			logger.Debug("Publish step complete",
				logfields.Tag(tag),
				logfields.Step(string(st.name)),
				logfields.DurationMS(float64(d.Microseconds())/1000))
		}

		tr.report.Duration = time.Since(t0)
		report.Tags = append(report.Tags, *tr.report)
		p.observer.OnTagComplete(report.RunID, *tr.report)
	}

	return nil
}

// clean removes a previous copy. A missing directory is not an error.
func (p *Publisher) clean(_ context.Context, tr *tagRun) error {
	if inside, err := isWithin(tr.root, p.settings.TemplateDir); err == nil && inside {
		return &PublishError{Step: StepClean, Tag: tr.tag, Path: tr.root, Err: errors.New("refusing to remove a directory holding the template tree")}
	}
	if err := os.RemoveAll(tr.root); err != nil {
		return &PublishError{Step: StepClean, Tag: tr.tag, Path: tr.root, Err: err}
	}
	return nil
}

func (p *Publisher) copy(_ context.Context, tr *tagRun) error {
	n, err := copyDir(p.settings.TemplateDir, tr.root)
	tr.report.Files = n
	if err != nil {
		return &PublishError{Step: StepCopy, Tag: tr.tag, Path: p.settings.TemplateDir, Err: err}
	}
	return nil
}

func (p *Publisher) rewrite(ctx context.Context, tr *tagRun) error {
	for _, rule := range p.settings.Rules {
		token := rule.Token()
		url := rule.URL(p.settings.BaseURL, tr.tag)
		count := 0

		for _, selector := range rule.Targets() {
			if err := ctx.Err(); err != nil {
				return &PublishError{Step: StepRewrite, Tag: tr.tag, Path: selector, Err: err}
			}

			files, err := resolveTargets(tr.root, selector)
			if err != nil {
				return &PublishError{Step: StepRewrite, Tag: tr.tag, Path: filepath.Join(tr.root, filepath.FromSlash(selector)), Err: err}
			}

			for _, file := range files {
				n, err := replaceInFile(file, token, url)
				if err != nil {
					return &PublishError{Step: StepRewrite, Tag: tr.tag, Path: file, Err: err}
				}
				count += n
			}
		}

		tr.report.Replacements[rule.Placeholder] += count
		p.recorder.AddReplacements(rule.Placeholder, count)
		if count > 0 {
			slog.Debug("Rewrote placeholder",
				logfields.RunID(tr.runID),
				logfields.Tag(tr.tag),
				logfields.Placeholder(rule.Placeholder),
				logfields.URL(url),
				logfields.Count(count))
		}
	}

	tokens := make([]string, len(p.settings.Rules))
	for i, rule := range p.settings.Rules {
		tokens[i] = rule.Token()
	}
	file, token, err := findLeftover(tr.root, tokens)
	if err != nil {
		return &PublishError{Step: StepRewrite, Tag: tr.tag, Path: tr.root, Err: err}
	}
	if file != "" {
		return &PublishError{Step: StepRewrite, Tag: tr.tag, Path: file, Err: fmt.Errorf("%w: %s", ErrTokenLeftover, token)}
	}
	return nil
}

// isWithin reports whether target is parent or lies below it.
func isWithin(parent, target string) (bool, error) {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return false, err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absParent, absTarget)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}
