package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/parse"
	"github.com/hugo-lorenzo-mato/medpanel/internal/testutil"
)

func TestScriptedModel_Routes(t *testing.T) {
	m := testutil.NewScriptedModel("scripted").
		On(testutil.HeadingVote, "first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second"} {
		resp, err := m.Submit(ctx, core.Request{Prompt: testutil.HeadingVote + "\n\nbody"})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, resp.Text, want)
	}

	resp, err := m.Submit(ctx, core.Request{Prompt: "# Something else"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Text, "OK")
	testutil.AssertEqual(t, m.CallCount(testutil.HeadingVote), 3)
	testutil.AssertLen(t, m.Calls(), 4)
}

func TestScriptedModel_Fail(t *testing.T) {
	m := testutil.NewScriptedModel("scripted").Fail(testutil.HeadingDecision, testutil.ErrTest)

	_, err := m.Submit(context.Background(), core.Request{Prompt: testutil.HeadingDecision})
	if !errors.Is(err, testutil.ErrTest) {
		t.Errorf("Submit() error = %v, want ErrTest", err)
	}
}

func TestScriptedModel_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testutil.NewScriptedModel("scripted").Submit(ctx, core.Request{})
	testutil.AssertError(t, err)
}

func TestReplyBuilders(t *testing.T) {
	letters := []string{"A", "B", "C", "D"}

	testutil.AssertEqual(t, parse.Assessment(testutil.SBAR("C"), letters).RecommendedAnswer, "C")
	v := parse.Vote(testutil.VoteReply("B", "0.9"), letters)
	testutil.AssertEqual(t, v.Choice, "B")
	testutil.AssertEqual(t, v.Confidence, 0.9)
	testutil.AssertEqual(t, parse.Decision(testutil.DecisionReply("D"), letters).Choice, "D")
}

func TestNewCase_Valid(t *testing.T) {
	testutil.AssertNoError(t, testutil.NewCase("chest pain").Validate())
}
