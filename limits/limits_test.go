package limits

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDefault(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	c.Assert(cfg.MaxCallDepth, qt.Equals, 100)
	c.Assert(cfg.MaxCommandCount, qt.Equals, 10000)
	c.Assert(cfg.MaxLoopIterations, qt.Equals, 10000)
	c.Assert(cfg.MaxSourceDepth, qt.Equals, 50)
}

func TestFromEnvOverlay(t *testing.T) {
	c := qt.New(t)
	t.Setenv("JUSTBASH_MAX_CALL_DEPTH", "7")
	t.Setenv("JUSTBASH_MAX_LOOP_ITERATIONS", "42")

	cfg, err := FromEnv()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.MaxCallDepth, qt.Equals, 7)
	c.Assert(cfg.MaxLoopIterations, qt.Equals, 42)
	c.Assert(cfg.MaxCommandCount, qt.Equals, 10000)
}

func TestExecutionLimitErrorMessage(t *testing.T) {
	c := qt.New(t)
	err := &ExecutionLimitError{Kind: Iterations, Limit: 10000}
	c.Assert(err.Error(), qt.Equals, "exceeded maximum loop iterations (10000)")
}
