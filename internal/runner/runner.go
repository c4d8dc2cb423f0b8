// Package runner executes workflow jobs locally, records their results and
// publishes reports, commit statuses and notifications for the run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zulandar/praktika/internal/artifacts"
	"github.com/zulandar/praktika/internal/ghstatus"
	"github.com/zulandar/praktika/internal/models"
	"github.com/zulandar/praktika/internal/notify"
	"github.com/zulandar/praktika/internal/report"
	"github.com/zulandar/praktika/internal/secrets"
	"github.com/zulandar/praktika/internal/workflow"
)

// ResultStore persists runs, job results and job output. *checks.Store
// implements it.
type ResultStore interface {
	CreateRun(run *models.WorkflowRun) error
	FinishRun(runID, status, reportURL string) error
	RecordCheck(c *models.Check) error
	AppendLog(l models.JobLog) error
}

// Reporter publishes a run report and returns its URL. *report.Publisher
// implements it.
type Reporter interface {
	Publish(r report.RunReport) (string, error)
}

// Runner runs workflows. Store and Executor are required; the other
// collaborators are optional and skipped when nil.
type Runner struct {
	Store    ResultStore
	Executor Executor
	Cache    *artifacts.Cache
	Secrets  secrets.Resolver
	Reports  Reporter
	Status   ghstatus.Poster
	Notifier notify.Notifier
	Logger   *zap.Logger

	WorkDir       string
	Parallelism   int
	JobTimeout    time.Duration
	FlushInterval time.Duration
	// Echo receives a live copy of all job output.
	Echo io.Writer
}

// RunOpts selects what to run and describes the commit it runs for.
type RunOpts struct {
	// Job limits the run to one job. Its requirements are assumed to have
	// passed in earlier runs.
	Job       string
	CommitSHA string
	PRNumber  int
	BaseRef   string
	HeadRef   string
	NoCache   bool
}

// JobResult is the outcome of one job.
type JobResult struct {
	Name     string
	Status   string
	Cached   bool
	ExitCode int
	Digest   string
	Info     string
	Started  time.Time
	Duration time.Duration
}

// Result is the outcome of a workflow run.
type Result struct {
	RunID     string
	Workflow  string
	Status    string
	ReportURL string
	Jobs      []JobResult
}

// Failed returns the names of jobs that did not succeed.
func (r *Result) Failed() []string {
	var out []string
	for _, j := range r.Jobs {
		if !models.IsOK(j.Status) {
			out = append(out, j.Name)
		}
	}
	return out
}

// Job returns the result for a job name.
func (r *Result) Job(name string) (JobResult, bool) {
	for _, j := range r.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobResult{}, false
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Run executes w's jobs level by level: jobs in one level run concurrently,
// up to Parallelism at a time. A job whose requirement did not succeed is
// skipped. The returned error covers infrastructure failures only; failed
// jobs are reported through Result.Status.
func (r *Runner) Run(ctx context.Context, w *workflow.Config, opts RunOpts) (*Result, error) {
	if r.Store == nil || r.Executor == nil {
		return nil, fmt.Errorf("runner: store and executor are required")
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	selected, err := selectJobs(w, opts.Job)
	if err != nil {
		return nil, err
	}
	levels, err := w.Order()
	if err != nil {
		return nil, err
	}
	env := r.secretEnv(w)

	run := &models.WorkflowRun{
		ID:                uuid.NewString(),
		Workflow:          w.Name,
		Event:             string(w.Event),
		CommitSHA:         opts.CommitSHA,
		PullRequestNumber: opts.PRNumber,
		BaseRef:           opts.BaseRef,
		HeadRef:           opts.HeadRef,
	}
	if err := r.Store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	log := r.logger().With(zap.String("run_id", run.ID), zap.String("workflow", w.Name))
	log.Info("workflow started", zap.Int("jobs", len(selected)), zap.String("sha", opts.CommitSHA))
	st := &runState{w: w, run: run, env: env, opts: opts, log: log}
	if r.Echo != nil {
		st.echo = &syncWriter{w: r.Echo}
	}

	if r.mergeStatusEnabled(w, opts) {
		r.postStatus(ctx, log, opts.CommitSHA, ghstatus.Status{
			State:       ghstatus.StatePending,
			Description: "running " + w.Name,
		})
	}

	res := &Result{RunID: run.ID, Workflow: w.Name}
	var mu sync.Mutex
	statuses := make(map[string]string)

	parallelism := r.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	var runErr error
	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallelism)
		for _, job := range level {
			if !selected[job.Name] {
				continue
			}
			mu.Lock()
			blocker := failedRequirement(job, statuses, selected)
			mu.Unlock()

			g.Go(func() error {
				var jr JobResult
				var err error
				if blocker != "" {
					jr, err = r.skipJob(run, job, blocker)
				} else {
					jr, err = r.runJob(gctx, st, job)
				}
				mu.Lock()
				statuses[job.Name] = jr.Status
				res.Jobs = append(res.Jobs, jr)
				mu.Unlock()
				return err
			})
		}
		if err := g.Wait(); err != nil {
			runErr = err
			break
		}
	}

	sortByDeclaration(w, res.Jobs)
	res.Status = overallStatus(res.Jobs)
	if runErr != nil {
		res.Status = models.StatusError
	}

	if r.Reports != nil && w.EnableHTML {
		url, err := r.Reports.Publish(r.buildReport(run, res))
		if err != nil {
			log.Warn("report not published", zap.Error(err))
		} else {
			res.ReportURL = url
		}
	}
	if err := r.Store.FinishRun(run.ID, res.Status, res.ReportURL); err != nil && runErr == nil {
		runErr = fmt.Errorf("runner: %w", err)
	}

	if r.mergeStatusEnabled(w, opts) {
		states := make([]ghstatus.JobState, len(res.Jobs))
		for i, j := range res.Jobs {
			states[i] = ghstatus.JobState{Name: j.Name, Status: j.Status, Cached: j.Cached}
		}
		status := ghstatus.MergeReadyState(states, res.ReportURL)
		if runErr != nil {
			status.State = ghstatus.StateError
			status.Description = "workflow did not complete"
		}
		r.postStatus(ctx, log, opts.CommitSHA, status)
	}

	if r.Notifier != nil && res.Status != models.StatusSuccess {
		err := r.Notifier.Notify(ctx, notify.Event{
			Workflow:  w.Name,
			RunID:     run.ID,
			CommitSHA: opts.CommitSHA,
			PRNumber:  opts.PRNumber,
			HeadRef:   opts.HeadRef,
			Status:    res.Status,
			Failed:    res.Failed(),
			ReportURL: res.ReportURL,
		})
		if err != nil {
			log.Warn("notification failed", zap.Error(err))
		}
	}

	log.Info("workflow finished", zap.String("status", res.Status), zap.String("report", res.ReportURL))
	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

// selectJobs returns the set of job names to run.
func selectJobs(w *workflow.Config, only string) (map[string]bool, error) {
	selected := make(map[string]bool, len(w.Jobs))
	if only != "" {
		if _, err := w.Job(only); err != nil {
			return nil, err
		}
		selected[only] = true
		return selected, nil
	}
	for _, j := range w.Jobs {
		selected[j.Name] = true
	}
	return selected, nil
}

// sortByDeclaration orders results like the workflow declares its jobs.
func sortByDeclaration(w *workflow.Config, jobs []JobResult) {
	index := make(map[string]int, len(w.Jobs))
	for i, j := range w.Jobs {
		index[j.Name] = i
	}
	slices.SortFunc(jobs, func(a, b JobResult) int { return index[a.Name] - index[b.Name] })
}

// failedRequirement returns the first requirement of job that ran in this
// run and did not succeed. Requirements outside the selection are trusted.
func failedRequirement(job *workflow.Job, statuses map[string]string, selected map[string]bool) string {
	for _, req := range job.Requires {
		if !selected[req] {
			continue
		}
		if !models.IsOK(statuses[req]) {
			return req
		}
	}
	return ""
}

// overallStatus is error if any job errored, failure if any other job did
// not succeed, success otherwise.
func overallStatus(jobs []JobResult) string {
	status := models.StatusSuccess
	for _, j := range jobs {
		switch j.Status {
		case models.StatusSuccess:
		case models.StatusError:
			return models.StatusError
		default:
			status = models.StatusFailure
		}
	}
	return status
}

// secretEnv resolves the workflow's secrets into environment variables.
// Missing secrets are logged; jobs that need them will fail on their own.
func (r *Runner) secretEnv(w *workflow.Config) map[string]string {
	env := make(map[string]string)
	if r.Secrets == nil || len(w.Secrets) == 0 {
		return env
	}
	values, err := secrets.ResolveAll(r.Secrets, w)
	if err != nil {
		r.logger().Warn("some secrets are unavailable", zap.Error(err))
	}
	for name, v := range values {
		env[secrets.EnvVar(name)] = v
	}
	return env
}

func (r *Runner) mergeStatusEnabled(w *workflow.Config, opts RunOpts) bool {
	return r.Status != nil && w.EnableMergeReadyStatus && opts.CommitSHA != "" && opts.Job == ""
}

func (r *Runner) postStatus(ctx context.Context, log *zap.Logger, sha string, st ghstatus.Status) {
	if err := r.Status.Post(ctx, sha, st); err != nil {
		log.Warn("commit status not set", zap.String("state", st.State), zap.Error(err))
	}
}

func (r *Runner) newCheck(run *models.WorkflowRun, job *workflow.Job, start time.Time) *models.Check {
	return &models.Check{
		RunID:             run.ID,
		Workflow:          run.Workflow,
		PullRequestNumber: run.PullRequestNumber,
		CommitSHA:         run.CommitSHA,
		BaseRef:           run.BaseRef,
		HeadRef:           run.HeadRef,
		CheckName:         job.Name,
		CheckStartTime:    start,
		InstanceType:      strings.Join(job.RunsOn, ","),
	}
}

func (r *Runner) skipJob(run *models.WorkflowRun, job *workflow.Job, blocker string) (JobResult, error) {
	now := time.Now()
	jr := JobResult{
		Name:    job.Name,
		Status:  models.StatusSkipped,
		Info:    fmt.Sprintf("required job %q did not succeed", blocker),
		Started: now,
	}
	c := r.newCheck(run, job, now)
	c.CheckStatus = jr.Status
	c.Info = jr.Info
	return jr, r.Store.RecordCheck(c)
}

// runState is what every job of one run shares.
type runState struct {
	w    *workflow.Config
	run  *models.WorkflowRun
	env  map[string]string
	opts RunOpts
	echo io.Writer
	log  *zap.Logger
}

// runJob runs one job, or reuses a cached result, and records it.
func (r *Runner) runJob(ctx context.Context, st *runState, job *workflow.Job) (JobResult, error) {
	w, run := st.w, st.run
	jr := JobResult{Name: job.Name, Started: time.Now()}
	log := st.log.With(zap.String("job", job.Name))

	useCache := w.EnableCache && r.Cache != nil && job.Cacheable()
	if useCache {
		digest, err := artifacts.Digest(job, r.WorkDir)
		if err != nil {
			log.Warn("digest failed, cache disabled for job", zap.Error(err))
			useCache = false
		} else {
			jr.Digest = digest
		}
	}
	if useCache && !st.opts.NoCache {
		entry, err := r.Cache.Lookup(w.Name, job.Name, jr.Digest)
		switch {
		case err == nil:
			jr.Status = models.StatusSuccess
			jr.Cached = true
			jr.Info = fmt.Sprintf("reused result of run %s", entry.RunID)
			log.Info("job cached", zap.String("digest", jr.Digest))
			return jr, r.record(run, job, jr)
		case !errors.Is(err, artifacts.ErrCacheMiss):
			log.Warn("cache lookup failed", zap.Error(err))
		}
	}

	log.Info("job started")
	image, flags := job.DockerImage()
	stdout := newLogWriter(r.Store.AppendLog, run.ID, job.Name, "out", st.echo)
	stderr := newLogWriter(r.Store.AppendLog, run.ID, job.Name, "err", st.echo)
	interval := r.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	flushCtx, flushCancel := context.WithCancel(ctx)
	startFlusher(flushCtx, stdout, interval)
	startFlusher(flushCtx, stderr, interval)

	exit, err := r.Executor.Run(ctx, ExecSpec{
		Name:        job.Name,
		Command:     job.Command,
		Image:       image,
		DockerFlags: flags,
		WorkDir:     r.WorkDir,
		Env:         st.env,
		Stdout:      stdout,
		Stderr:      stderr,
		Timeout:     job.EffectiveTimeout(r.JobTimeout),
	})
	flushCancel()
	if ferr := errors.Join(stdout.Close(), stderr.Close()); ferr != nil {
		log.Warn("job output not saved", zap.Error(ferr))
	}
	if eerr := errors.Join(stdout.EchoErr(), stderr.EchoErr()); eerr != nil {
		log.Warn("live job output stopped", zap.Error(eerr))
	}

	jr.Duration = exit.Duration
	jr.ExitCode = exit.ExitCode
	switch {
	case err != nil:
		jr.Status = models.StatusError
		jr.Info = err.Error()
	case exit.ExitCode == 0:
		jr.Status = models.StatusSuccess
	default:
		jr.Status = models.StatusFailure
		jr.Info = fmt.Sprintf("exit code %d", exit.ExitCode)
	}
	log.Info("job finished",
		zap.String("status", jr.Status),
		zap.Int("exit_code", jr.ExitCode),
		zap.Duration("duration", jr.Duration),
	)

	if useCache && jr.Status == models.StatusSuccess {
		err := r.Cache.Store(artifacts.CacheEntry{
			Workflow:   w.Name,
			Job:        job.Name,
			Digest:     jr.Digest,
			Status:     jr.Status,
			RunID:      run.ID,
			CommitSHA:  run.CommitSHA,
			DurationMs: jr.Duration.Milliseconds(),
			FinishedAt: time.Now(),
		})
		if err != nil {
			log.Warn("result not cached", zap.Error(err))
		}
	}
	return jr, r.record(run, job, jr)
}

func (r *Runner) record(run *models.WorkflowRun, job *workflow.Job, jr JobResult) error {
	c := r.newCheck(run, job, jr.Started)
	c.CheckStatus = jr.Status
	c.CheckDurationMs = jr.Duration.Milliseconds()
	c.Cached = jr.Cached
	c.Digest = jr.Digest
	c.ExitCode = jr.ExitCode
	c.Info = jr.Info
	return r.Store.RecordCheck(c)
}

func (r *Runner) buildReport(run *models.WorkflowRun, res *Result) report.RunReport {
	rep := report.RunReport{
		RunID:      run.ID,
		Workflow:   run.Workflow,
		Event:      run.Event,
		CommitSHA:  run.CommitSHA,
		PRNumber:   run.PullRequestNumber,
		BaseRef:    run.BaseRef,
		HeadRef:    run.HeadRef,
		Status:     res.Status,
		StartedAt:  run.StartedAt,
		FinishedAt: time.Now(),
	}
	for _, j := range res.Jobs {
		rep.Jobs = append(rep.Jobs, report.JobRow{
			Name:      j.Name,
			Status:    j.Status,
			Cached:    j.Cached,
			StartedAt: j.Started,
			Duration:  j.Duration,
			ExitCode:  j.ExitCode,
			Info:      j.Info,
		})
	}
	return rep
}
