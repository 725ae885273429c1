package repair

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"robospec/internal/apisurface"
	"robospec/internal/logging"
	"robospec/internal/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const validCfg = `from isaaclab.envs import ManagerBasedRLEnvCfg
from isaaclab.managers import RewardTermCfg as RewTerm
from isaaclab.utils import configclass
import isaaclab.envs.mdp as mdp

from isaaclab_assets.robots.cartpole import CARTPOLE_CFG  # isort:skip


@configclass
class CartpoleRewardsCfg:
    alive = RewTerm(func=mdp.is_alive, weight=1.0)


@configclass
class CartpoleEnvCfg(ManagerBasedRLEnvCfg):
    rewards: CartpoleRewardsCfg = CartpoleRewardsCfg()

    def __post_init__(self):
        self.decimation = 2
`

// missing __post_init__
var invalidCfg = strings.Replace(validCfg, "    def __post_init__(self):\n        self.decimation = 2\n", "    decimation = 2\n", 1)

// fakeGenerator replays scripted responses and records requests.
type fakeGenerator struct {
	mu        sync.Mutex
	draft     string
	repairs   []string
	genErr    error
	repairErr error
	onRepair  func()

	knowledge string
	requests  []RepairRequest
}

func (g *fakeGenerator) Generate(_ context.Context, _ task.Spec, knowledge string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.knowledge = knowledge
	return g.draft, g.genErr
}

func (g *fakeGenerator) Repair(ctx context.Context, req RepairRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.onRepair != nil {
		g.onRepair()
	}
	if g.repairErr != nil {
		return "", g.repairErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(g.repairs) == 0 {
		return req.Code, nil
	}
	next := g.repairs[0]
	g.repairs = g.repairs[1:]
	return next, nil
}

type staticContext string

func (c staticContext) BuildContext(string) (string, error) { return string(c), nil }

func newOrchestrator(gen Generator, maxAttempts int) *Orchestrator {
	return New(Config{MaxAttempts: maxAttempts}, Deps{
		Symbols:   apisurface.New(apisurface.Options{UseEmbedded: true}),
		Generator: gen,
	})
}

func TestAcceptedWithoutRepair(t *testing.T) {
	gen := &fakeGenerator{}
	out, err := newOrchestrator(gen, 2).Run(context.Background(), validCfg, "classic_cartpole", "")
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, out.State)
	assert.True(t, out.Accepted())
	assert.True(t, out.Verdict.Valid)
	assert.Zero(t, out.RepairRequests)
	assert.Empty(t, gen.requests)
	assert.Empty(t, out.Rounds)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, []State{StateGenerated, StateNormalized, StateCorrected, StateValidated, StateAccepted}, out.History)
}

func TestLocalPassFixesWithoutNetwork(t *testing.T) {
	code := strings.Replace(validCfg, "mdp.is_alive", "mdp.joint_pos_l2", 1)
	code = strings.Replace(code, "import isaaclab.envs.mdp as mdp", "import isaaclab_tasks.manager_based.classic.cartpole.mdp as mdp", 1)

	gen := &fakeGenerator{}
	out, err := newOrchestrator(gen, 2).Run(context.Background(), code, "classic_cartpole", "")
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, out.State)
	assert.Empty(t, gen.requests)
	assert.Equal(t, []string{"mdp.joint_pos_l2 -> mdp.joint_pos_target_l2"}, out.Corrections)
	assert.Equal(t, []string{"Replaced task-specific mdp import with isaaclab.envs.mdp"}, out.Fixes)
	assert.Contains(t, out.Code, "mdp.joint_pos_target_l2")
}

func TestValidAfterOneRepair(t *testing.T) {
	gen := &fakeGenerator{repairs: []string{validCfg}}
	out, err := newOrchestrator(gen, 2).Run(context.Background(), invalidCfg, "classic_cartpole", "ctx")
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, out.State)
	assert.True(t, out.Verdict.Valid)
	assert.Equal(t, 1, out.RepairRequests)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, []string{"Missing __post_init__ method"}, gen.requests[0].Errors)
	assert.Equal(t, "ctx", gen.requests[0].Context)
	assert.Empty(t, gen.requests[0].WhitelistHint)
	assert.Equal(t, 1, gen.requests[0].Attempt)

	require.Len(t, out.Rounds, 1)
	round := out.Rounds[0]
	assert.Equal(t, 1, round.Attempt)
	assert.False(t, round.Before.Valid)
	require.NotNil(t, round.After)
	assert.True(t, round.After.Valid)

	assert.Equal(t, []State{
		StateGenerated, StateNormalized, StateCorrected, StateValidated, StateRepairRequested,
		StateNormalized, StateCorrected, StateValidated, StateAccepted,
	}, out.History)
}

func TestBoundedRepairs(t *testing.T) {
	gen := &fakeGenerator{repairs: []string{invalidCfg, invalidCfg, invalidCfg, validCfg}}
	out, err := newOrchestrator(gen, DefaultMaxAttempts).Run(context.Background(), invalidCfg, "classic_cartpole", "")
	require.NoError(t, err)

	assert.Equal(t, StateBestEffort, out.State)
	assert.False(t, out.Verdict.Valid)
	assert.Equal(t, []string{"Missing __post_init__ method"}, out.Verdict.Errors)
	assert.Equal(t, 2, out.RepairRequests)
	assert.Len(t, gen.requests, 2)
	assert.Len(t, out.Rounds, 2)
	assert.NotEmpty(t, out.Code, "best effort keeps the artifact")
}

func TestNoGeneratorMeansLocalOnly(t *testing.T) {
	out, err := newOrchestrator(nil, 2).Run(context.Background(), invalidCfg, "classic_cartpole", "")
	require.NoError(t, err)
	assert.Equal(t, StateBestEffort, out.State)
	assert.Zero(t, out.RepairRequests)
}

func TestZeroAttempts(t *testing.T) {
	gen := &fakeGenerator{}
	out, err := newOrchestrator(gen, 0).Run(context.Background(), invalidCfg, "classic_cartpole", "")
	require.NoError(t, err)
	assert.Equal(t, StateBestEffort, out.State)
	assert.Empty(t, gen.requests)
}

func TestWhitelistHintOnlyForUnknownSymbols(t *testing.T) {
	code := strings.Replace(validCfg, "mdp.is_alive", "mdp.totally_fake_function", 1)
	gen := &fakeGenerator{repairs: []string{validCfg}}

	out, err := newOrchestrator(gen, 2).Run(context.Background(), code, "classic_cartpole", "")
	require.NoError(t, err)
	assert.Equal(t, StateAccepted, out.State)

	require.Len(t, gen.requests, 1)
	hint := gen.requests[0].WhitelistHint
	assert.True(t, strings.HasPrefix(hint, WhitelistHintHeader))
	assert.Contains(t, hint, "is_alive, ")
}

func TestGeneratorFailureAbandons(t *testing.T) {
	boom := errors.New("upstream 500")
	gen := &fakeGenerator{repairErr: boom}

	out, err := newOrchestrator(gen, 2).Run(context.Background(), invalidCfg, "classic_cartpole", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.ErrorIs(t, err, boom)

	require.NotNil(t, out)
	assert.Equal(t, StateAbandoned, out.State)
	assert.Equal(t, 1, out.RepairRequests)
	assert.False(t, out.Verdict.Valid)
	assert.NotEmpty(t, out.Code)
}

func TestCancellationAbandons(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{onRepair: cancel}

	out, err := newOrchestrator(gen, 2).Run(ctx, invalidCfg, "classic_cartpole", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StateAbandoned, out.State)
	assert.Equal(t, StateAbandoned, out.History[len(out.History)-1])
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newOrchestrator(&fakeGenerator{}, 2).Run(ctx, validCfg, "classic_cartpole", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []State{StateGenerated, StateAbandoned}, out.History)
}

func TestGenerateAndRun(t *testing.T) {
	gen := &fakeGenerator{draft: invalidCfg, repairs: []string{validCfg}}
	o := New(DefaultConfig(), Deps{
		Symbols:   apisurface.New(apisurface.Options{UseEmbedded: true}),
		Generator: gen,
		Context:   staticContext("reference material"),
	})

	out, err := o.GenerateAndRun(context.Background(), task.Spec{Category: "classic_cartpole", Robot: "cartpole"})
	require.NoError(t, err)
	assert.Equal(t, StateAccepted, out.State)
	assert.Equal(t, "reference material", gen.knowledge)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, "reference material", gen.requests[0].Context)
}

func TestGenerateFailure(t *testing.T) {
	gen := &fakeGenerator{genErr: errors.New("no quota")}
	out, err := newOrchestrator(gen, 2).GenerateAndRun(context.Background(), task.Spec{Category: "classic_cartpole"})
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StateAbandoned, out.State)

	_, err = newOrchestrator(nil, 2).GenerateAndRun(context.Background(), task.Spec{})
	assert.Error(t, err)
}

func TestGenerateAndRunLogsLifecycle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetBase(zap.New(core))
	t.Cleanup(func() { logging.SetBase(nil) })

	gen := &fakeGenerator{draft: validCfg}
	out, err := newOrchestrator(gen, 2).GenerateAndRun(context.Background(), task.Spec{Category: "classic_cartpole", Robot: "cartpole"})
	require.NoError(t, err)

	repairLogs := logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "repair" })
	started := repairLogs.FilterMessage("run " + out.RunID + " started for classic_cartpole")
	assert.Equal(t, 1, started.Len())
	requested := repairLogs.FilterMessage("run " + out.RunID + ": requesting classic_cartpole draft for cartpole")
	require.Equal(t, 1, requested.Len())
	assert.Equal(t, zapcore.InfoLevel, requested.All()[0].Level)

	transitions := repairLogs.FilterField(zap.String("run_id", out.RunID)).FilterMessage("generated -> normalized")
	assert.Equal(t, 1, transitions.Len())
}

func TestConcurrentRuns(t *testing.T) {
	o := newOrchestrator(nil, 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := o.Run(context.Background(), validCfg, "classic_cartpole", "")
			if assert.NoError(t, err) {
				assert.Equal(t, StateAccepted, out.State)
			}
		}()
	}
	wg.Wait()
}
