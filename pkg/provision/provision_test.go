// pkg/provision/provision_test.go

package provision

import (
	"context"
	"testing"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/config"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_err"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost is a single recording stub behind every collaborator interface.
// Calls are appended to f.calls as "method:detail" strings; fail[key] injects
// an error for that call.
type fakeHost struct {
	calls []string
	fail  map[string]error

	// certFailures makes Issue fail this many times before succeeding.
	certFailures int
	certCalls    int

	envWritten map[string]string
}

func newFakeHost() *fakeHost {
	return &fakeHost{fail: map[string]error{}}
}

func (f *fakeHost) record(key string) error {
	f.calls = append(f.calls, key)
	return f.fail[key]
}

func (f *fakeHost) Update(rc *panel_io.RuntimeContext) error { return f.record("apt.update") }
func (f *fakeHost) Install(rc *panel_io.RuntimeContext, names []string) error {
	return f.record("apt.install")
}
func (f *fakeHost) Allow(rc *panel_io.RuntimeContext, rule string) error {
	return f.record("ufw.allow:" + rule)
}
func (f *fakeHost) Ensure(rc *panel_io.RuntimeContext, url, dir string) (string, error) {
	return "cloned", f.record("repo.ensure:" + dir)
}
func (f *fakeHost) Remove(rc *panel_io.RuntimeContext, dir string) error {
	return f.record("repo.remove:" + dir)
}
func (f *fakeHost) InstallDeps(rc *panel_io.RuntimeContext, dir string) error {
	return f.record("composer.install")
}
func (f *fakeHost) HasExtension(rc *panel_io.RuntimeContext, name string) (bool, error) {
	if err := f.record("php.ext:" + name); err != nil {
		return false, err
	}
	return true, nil
}
func (f *fakeHost) Run(rc *panel_io.RuntimeContext, dir string, args ...string) error {
	return f.record("artisan:" + args[0])
}
func (f *fakeHost) Write(rc *panel_io.RuntimeContext, path string, values map[string]string) error {
	if err := f.record("env.write:" + path); err != nil {
		return err
	}
	f.envWritten = values
	return nil
}
func (f *fakeHost) Execute(rc *panel_io.RuntimeContext, sql string) error {
	return f.record("db.execute")
}
func (f *fakeHost) ConfigureSite(rc *panel_io.RuntimeContext, name, domain, rootDir, fcgiSocket string) error {
	return f.record("web.configure:" + name)
}
func (f *fakeHost) ValidateConfig(rc *panel_io.RuntimeContext) error { return f.record("web.validate") }
func (f *fakeHost) Reload(rc *panel_io.RuntimeContext) error         { return f.record("web.reload") }
func (f *fakeHost) RemoveSite(rc *panel_io.RuntimeContext, name string) error {
	return f.record("web.removesite:" + name)
}
func (f *fakeHost) Register(rc *panel_io.RuntimeContext, name, appDir string) error {
	return f.record("svc.register:" + name)
}
func (f *fakeHost) Enable(rc *panel_io.RuntimeContext, name string) error {
	return f.record("svc.enable:" + name)
}
func (f *fakeHost) Start(rc *panel_io.RuntimeContext, name string) error {
	return f.record("svc.start:" + name)
}
func (f *fakeHost) Stop(rc *panel_io.RuntimeContext, name string) error {
	return f.record("svc.stop:" + name)
}
func (f *fakeHost) Disable(rc *panel_io.RuntimeContext, name string) error {
	return f.record("svc.disable:" + name)
}
func (f *fakeHost) RemoveService(rc *panel_io.RuntimeContext, name string) error {
	return f.record("svc.remove:" + name)
}
func (f *fakeHost) InstallSchedule(rc *panel_io.RuntimeContext, id, appDir string) error {
	return f.record("cron.install:" + id)
}
func (f *fakeHost) RemoveSchedule(rc *panel_io.RuntimeContext, id string) error {
	return f.record("cron.remove:" + id)
}
func (f *fakeHost) Issue(rc *panel_io.RuntimeContext, domain, email string) error {
	f.certCalls++
	f.calls = append(f.calls, "cert.issue:"+domain)
	if f.certCalls <= f.certFailures {
		return cerr.New("acme challenge failed")
	}
	return f.fail["cert.issue"]
}
func (f *fakeHost) Delete(rc *panel_io.RuntimeContext, domain string) error {
	return f.record("cert.delete:" + domain)
}
func (f *fakeHost) Ping(rc *panel_io.RuntimeContext) error { return f.record("redis.ping") }
func (f *fakeHost) Discover(rc *panel_io.RuntimeContext) (string, error) {
	if err := f.record("fpm.discover"); err != nil {
		return "", err
	}
	return "/run/php/php8.3-fpm.sock", nil
}

// repoAdapter and svcAdapter split the method-name collisions between
// RepoSyncer.Remove / ServiceManager.Remove and
// DependencyInstaller.Install / PackageManager.Install.
type repoAdapter struct{ f *fakeHost }

func (a repoAdapter) Ensure(rc *panel_io.RuntimeContext, url, dir string) (string, error) {
	return a.f.Ensure(rc, url, dir)
}
func (a repoAdapter) Remove(rc *panel_io.RuntimeContext, dir string) error {
	return a.f.Remove(rc, dir)
}

type composerAdapter struct{ f *fakeHost }

func (a composerAdapter) Install(rc *panel_io.RuntimeContext, dir string) error {
	return a.f.InstallDeps(rc, dir)
}

type svcAdapter struct{ f *fakeHost }

func (a svcAdapter) Register(rc *panel_io.RuntimeContext, name, appDir string) error {
	return a.f.Register(rc, name, appDir)
}
func (a svcAdapter) Enable(rc *panel_io.RuntimeContext, name string) error {
	return a.f.Enable(rc, name)
}
func (a svcAdapter) Start(rc *panel_io.RuntimeContext, name string) error { return a.f.Start(rc, name) }
func (a svcAdapter) Stop(rc *panel_io.RuntimeContext, name string) error  { return a.f.Stop(rc, name) }
func (a svcAdapter) Disable(rc *panel_io.RuntimeContext, name string) error {
	return a.f.Disable(rc, name)
}
func (a svcAdapter) Remove(rc *panel_io.RuntimeContext, name string) error {
	return a.f.RemoveService(rc, name)
}

func testDeps(f *fakeHost) *Deps {
	return &Deps{
		Packages: f,
		Firewall: f,
		Repo:     repoAdapter{f},
		Composer: composerAdapter{f},
		PHP:      f,
		Artisan:  f,
		Env:      f,
		DB:       f,
		Web:      f,
		Services: svcAdapter{f},
		Schedule: f,
		Certs:    f,
		Cache:    f,
		Sockets:  f,

		CertAttempts:   3,
		CertRetryDelay: 1, // effectively immediate in tests
	}
}

func testConfig() *config.InstallConfig {
	return &config.InstallConfig{
		Domain:     "panel.example.com",
		AdminEmail: "admin@example.com",
		DBEngine:   config.EngineMariaDB,
		DBHost:     "127.0.0.1",
		DBPort:     3306,
		DBName:     "ctrlpanel",
		DBUser:     "ctrluser",
		DBPassword: "generated-password-1",
	}
}

func testRC(t *testing.T) *panel_io.RuntimeContext {
	t.Helper()
	return panel_io.NewContext(context.Background(), "test")
}

var wantOrder = []string{
	StepSystemPackages, StepFirewall, StepRepository, StepPHPExtensions,
	StepDependencies, StepEnvironment, StepDatabase, StepMigrations,
	StepAppFinalize, StepWebserver, StepQueueWorker, StepSchedule,
	StepCacheCheck, StepCertificate,
}

func TestPlanOrderIsDeterministic(t *testing.T) {
	deps := testDeps(newFakeHost())

	for i := 0; i < 3; i++ {
		steps, err := Plan(testConfig(), deps)
		require.NoError(t, err)
		require.Len(t, steps, len(wantOrder))
		for j, s := range steps {
			assert.Equal(t, wantOrder[j], s.ID)
		}
	}
}

func TestPlanRejectsBlankPassword(t *testing.T) {
	cfg := testConfig()
	cfg.DBPassword = ""
	_, err := Plan(cfg, testDeps(newFakeHost()))
	require.Error(t, err)
}

func TestPlanFatalityAndRecoverability(t *testing.T) {
	steps, err := Plan(testConfig(), testDeps(newFakeHost()))
	require.NoError(t, err)

	fatal := map[string]bool{}
	recoverable := map[string]bool{}
	for _, s := range steps {
		fatal[s.ID] = s.Fatal
		recoverable[s.ID] = s.Recoverable
	}

	for _, id := range []string{StepSystemPackages, StepRepository, StepDependencies,
		StepEnvironment, StepDatabase, StepMigrations, StepWebserver, StepQueueWorker} {
		assert.True(t, fatal[id], "%s should be fatal", id)
	}
	for _, id := range []string{StepFirewall, StepPHPExtensions, StepAppFinalize,
		StepSchedule, StepCacheCheck, StepCertificate} {
		assert.False(t, fatal[id], "%s should not be fatal", id)
	}
	for _, id := range []string{StepRepository, StepDatabase, StepWebserver,
		StepQueueWorker, StepSchedule, StepCertificate} {
		assert.True(t, recoverable[id], "%s should be recoverable", id)
	}
}

func TestRunAllSucceed(t *testing.T) {
	f := newFakeHost()
	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.NoError(t, err)

	assert.Equal(t, len(wantOrder), ledger.Len())
	assert.Equal(t, len(wantOrder), ledger.Count(Succeeded))
	assert.Zero(t, ledger.Count(Failed))

	require.NotNil(t, f.envWritten)
	assert.Equal(t, "https://panel.example.com", f.envWritten["APP_URL"])
	assert.Equal(t, "ctrlpanel", f.envWritten["DB_DATABASE"])
	assert.Equal(t, "ctrluser", f.envWritten["DB_USERNAME"])
}

func TestRunAbortsOnFatalFailure(t *testing.T) {
	f := newFakeHost()
	f.fail["composer.install"] = cerr.New("composer exited 1")

	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.Error(t, err)

	var sf *panel_err.StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, StepDependencies, sf.StepID)
	assert.True(t, sf.Fatal)
	assert.Equal(t, 1, panel_err.ExitCode(err))

	// Run stops at the failing step; dependencies is step 5.
	assert.Equal(t, 5, ledger.Len())
	entries := ledger.Entries()
	assert.Equal(t, Failed, entries[4].Result.Outcome)
	// Nothing after the abort ever ran.
	assert.NotContains(t, f.calls, "db.execute")
}

func TestRunContinuesPastNonFatalFailure(t *testing.T) {
	f := newFakeHost()
	f.fail["redis.ping"] = cerr.New("connection refused")

	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.NoError(t, err)

	assert.Equal(t, len(wantOrder), ledger.Len())
	assert.Equal(t, 1, ledger.Count(Failed))
	require.Len(t, ledger.Failures(), 1)
	assert.Equal(t, StepCacheCheck, ledger.Failures()[0].StepID)
	// The run carried on to the certificate step.
	assert.Contains(t, f.calls, "cert.issue:panel.example.com")
}

func TestCertificateSkippedForLocalDomain(t *testing.T) {
	f := newFakeHost()
	cfg := testConfig()
	cfg.Domain = "panel.local"

	steps, err := Plan(cfg, testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.NoError(t, err)

	entries := ledger.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, StepCertificate, last.StepID)
	assert.Equal(t, Skipped, last.Result.Outcome)
	assert.Zero(t, f.certCalls)
}

func TestCertificateSkippedWithoutEmail(t *testing.T) {
	f := newFakeHost()
	cfg := testConfig()
	cfg.AdminEmail = ""

	steps, err := Plan(cfg, testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.Count(Skipped))
	assert.Zero(t, f.certCalls)
}

func TestCertificateRetriesThenSucceeds(t *testing.T) {
	f := newFakeHost()
	f.certFailures = 2

	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.NoError(t, err)

	assert.Equal(t, 3, f.certCalls)
	entries := ledger.Entries()
	assert.Equal(t, Succeeded, entries[len(entries)-1].Result.Outcome)
}

func TestCertificateFailsAfterRetryBudget(t *testing.T) {
	f := newFakeHost()
	f.certFailures = 99

	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	ledger, err := (&Executor{}).Run(testRC(t), steps)
	require.NoError(t, err, "certificate failure is non-fatal")

	assert.Equal(t, 3, f.certCalls, "retry budget is bounded")
	entries := ledger.Entries()
	assert.Equal(t, Failed, entries[len(entries)-1].Result.Outcome)
}

func TestRollbackReversesOnlyRecoverableInReverseOrder(t *testing.T) {
	f := newFakeHost()
	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	rc := testRC(t)
	ledger, err := (&Executor{}).Run(rc, steps)
	require.NoError(t, err)

	f.calls = nil
	require.NoError(t, Rollback(rc, ledger, steps))

	want := []string{
		"cert.delete:panel.example.com",
		"cron.remove:" + shared.ScheduleID,
		"svc.stop:" + shared.ServiceName,
		"svc.disable:" + shared.ServiceName,
		"svc.remove:" + shared.ServiceName,
		"web.removesite:" + shared.SiteName,
		"web.reload",
		"db.execute", // drop database
		"db.execute", // drop user
		"db.execute", // flush privileges
		"repo.remove:" + shared.AppDir,
	}
	assert.Equal(t, want, f.calls)
}

func TestRollbackAfterFatalFailureSkipsUnappliedSteps(t *testing.T) {
	f := newFakeHost()
	f.fail["artisan:migrate"] = cerr.New("migration blew up")

	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	rc := testRC(t)
	ledger, err := (&Executor{}).Run(rc, steps)
	require.Error(t, err)

	f.calls = nil
	require.NoError(t, Rollback(rc, ledger, steps))

	// Only database and repository were applied and recoverable; the
	// webserver, worker, schedule and certificate never ran.
	assert.Equal(t, []string{
		"db.execute", "db.execute", "db.execute",
		"repo.remove:" + shared.AppDir,
	}, f.calls)
}

func TestRollbackCollectsUndoFailures(t *testing.T) {
	f := newFakeHost()
	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	rc := testRC(t)
	ledger, err := (&Executor{}).Run(rc, steps)
	require.NoError(t, err)

	f.calls = nil
	f.fail["cron.remove:"+shared.ScheduleID] = cerr.New("cron entry busy")

	err = Rollback(rc, ledger, steps)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	var rf *panel_err.RollbackFailure
	require.ErrorAs(t, merr.Errors[0], &rf)
	assert.Equal(t, StepSchedule, rf.StepID)

	// A failed undo never halts the rest of the rollback.
	assert.Contains(t, f.calls, "repo.remove:"+shared.AppDir)
}

func TestRollbackTouchesOnlyManagedFootprint(t *testing.T) {
	f := newFakeHost()
	steps, err := Plan(testConfig(), testDeps(f))
	require.NoError(t, err)

	rc := testRC(t)
	ledger, err := (&Executor{}).Run(rc, steps)
	require.NoError(t, err)

	f.calls = nil
	require.NoError(t, Rollback(rc, ledger, steps))

	for _, call := range f.calls {
		assert.NotContains(t, call, "apt.", "rollback must never touch packages")
		assert.NotContains(t, call, "ufw.", "rollback must never touch firewall rules")
	}
}

func TestDescribeListsEveryStep(t *testing.T) {
	steps, err := Plan(testConfig(), testDeps(newFakeHost()))
	require.NoError(t, err)

	out := Describe(steps)
	for _, id := range wantOrder {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "[fatal]")
	assert.Contains(t, out, "[recoverable]")
	assert.Contains(t, out, "[fatal, recoverable]")
}
