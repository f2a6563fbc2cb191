//go:build e2e

package e2e

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushqa/wpregress/pkg/locator"
)

const shortTimeout = 500 * time.Millisecond

func TestLocator_FirstCandidateMatches(t *testing.T) {
	sess, page := openFixture(t)
	loc := locator.New(locator.WithTimeout(2 * time.Second))

	res := loc.Click(t.Context(), sess.Page(), []string{"#create-broadcast", "text=Create Broadcast"})
	require.True(t, res.Succeeded, "click failed: %v", res.Err)
	assert.Equal(t, locator.OutcomeFound, res.Outcome)
	assert.Equal(t, "#create-broadcast", res.Matched)
	assert.Equal(t, []string{"#create-broadcast"}, res.Attempted)
	assert.Equal(t, 1, res.Depth())

	waitText(t, page, "#clicks", "1")
	waitVisible(t, page, ".notice-success")
}

func TestLocator_FallsBackToLaterCandidate(t *testing.T) {
	sess, page := openFixture(t)
	loc := locator.New(locator.WithTimeout(shortTimeout))

	candidates := []string{"#missing-button", ".dup", "#hidden-save", "a.page-title-action"}
	res := loc.Click(t.Context(), sess.Page(), candidates)
	require.True(t, res.Succeeded, "click failed: %v", res.Err)
	assert.Equal(t, "a.page-title-action", res.Matched)
	assert.Equal(t, candidates, res.Attempted)
	assert.Equal(t, 4, res.Depth())
	require.Len(t, res.Attempts, 4)
	for _, a := range res.Attempts[:3] {
		require.ErrorIs(t, a.Err, locator.ErrNotFound, "attempt %s", a.Selector)
	}
	require.NoError(t, res.Attempts[3].Err)

	// exactly one click performed
	waitText(t, page, "#clicks", "1")
}

func TestLocator_AmbiguousSelectorSkipped(t *testing.T) {
	sess, _ := openFixture(t)
	loc := locator.New(locator.WithTimeout(shortTimeout))

	start := time.Now()
	res := loc.IsVisible(t.Context(), sess.Page(), []string{".dup", ".dup >> nth=1"})
	require.True(t, res.Succeeded, "visible failed: %v", res.Err)
	assert.Equal(t, ".dup >> nth=1", res.Matched)
	assert.True(t, res.Visible)
	// a strict mode violation fails fast instead of waiting the full timeout
	assert.Less(t, time.Since(start), 2*shortTimeout)
	require.Len(t, res.Attempts, 2)
	require.ErrorIs(t, res.Attempts[0].Err, locator.ErrAmbiguous)
	assert.Equal(t, []string{".dup"}, res.Ambiguous())
}

func TestLocator_SlowCandidateFallsThrough(t *testing.T) {
	sess, page := openFixture(t)
	loc := locator.New(locator.WithTimeout(300 * time.Millisecond))

	// #late-button shows up only after 800ms, past its own candidate budget
	res := loc.Click(t.Context(), sess.Page(), []string{"#late-button", "#create-broadcast"})
	require.True(t, res.Succeeded, "click failed: %v", res.Err)
	assert.Equal(t, "#create-broadcast", res.Matched)
	assert.Equal(t, []string{"#late-button", "#create-broadcast"}, res.Attempted)
	assert.Equal(t, 2, res.Depth())
	require.ErrorIs(t, res.Attempts[0].Err, locator.ErrNotFound)
	assert.NotErrorIs(t, res.Attempts[0].Err, locator.ErrAmbiguous)
	waitText(t, page, "#clicks", "1")
}

func TestLocator_ReadIsIdempotent(t *testing.T) {
	sess, page := openFixture(t)
	loc := locator.New(locator.WithTimeout(2 * time.Second))
	cands := []string{".wrap h1.page-title", "h1.wp-heading-inline"}

	first := loc.Read(t.Context(), sess.Page(), cands)
	second := loc.Read(t.Context(), sess.Page(), cands)
	require.True(t, first.Succeeded, "read failed: %v", first.Err)
	require.True(t, second.Succeeded, "read failed: %v", second.Err)
	assert.Equal(t, "Broadcasts", first.Text)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Matched, second.Matched)
	assert.Equal(t, first.Attempted, second.Attempted)
	waitText(t, page, "#clicks", "0")
}

func TestLocator_ExpectAbsentOnDuplicates(t *testing.T) {
	sess, _ := openFixture(t)
	loc := locator.New(locator.WithTimeout(shortTimeout))

	res := loc.IsVisible(t.Context(), sess.Page(), []string{".dup"})
	assert.False(t, res.Succeeded)
	require.ErrorIs(t, res.Err, locator.ErrExhausted)
	assert.Equal(t, []string{".dup"}, res.Ambiguous(), "visible duplicates must not read as absent")

	res = loc.IsVisible(t.Context(), sess.Page(), []string{"#hidden-save"})
	assert.Empty(t, res.Ambiguous())
}

func TestLocator_Exhausted(t *testing.T) {
	sess, _ := openFixture(t)
	loc := locator.New(locator.WithTimeout(300 * time.Millisecond))

	candidates := []string{"#nope-1", "#hidden-save", "text=Does Not Exist"}
	start := time.Now()
	res := loc.Click(t.Context(), sess.Page(), candidates)
	elapsed := time.Since(start)

	assert.False(t, res.Succeeded)
	assert.Equal(t, locator.OutcomeExhausted, res.Outcome)
	assert.Empty(t, res.Matched)
	assert.Equal(t, candidates, res.Attempted)
	require.ErrorIs(t, res.Err, locator.ErrExhausted)
	assert.GreaterOrEqual(t, elapsed, 850*time.Millisecond, "every candidate gets its own budget")
	assert.Less(t, elapsed, 3*time.Second)
}

func TestLocator_LateElement(t *testing.T) {
	sess, _ := openFixture(t)
	loc := locator.New(locator.WithTimeout(3 * time.Second))

	res := loc.Read(t.Context(), sess.Page(), []string{"#late-button"})
	require.True(t, res.Succeeded, "read failed: %v", res.Err)
	assert.Equal(t, "Send Now", res.Text)
}

func TestLocator_FillAndRead(t *testing.T) {
	sess, _ := openFixture(t)
	loc := locator.New(locator.WithTimeout(2 * time.Second))
	ctx := t.Context()

	res := loc.Fill(ctx, sess.Page(), []string{"#post-title", "input[name=title]"}, "regression broadcast")
	require.True(t, res.Succeeded, "fill failed: %v", res.Err)
	assert.Equal(t, "input[name=title]", res.Matched)

	res = loc.Read(ctx, sess.Page(), []string{"#title"})
	require.True(t, res.Succeeded, "read failed: %v", res.Err)
	assert.Equal(t, "regression broadcast", res.Text)

	res = loc.Read(ctx, sess.Page(), []string{"#audience"})
	require.True(t, res.Succeeded, "read failed: %v", res.Err)
	assert.Equal(t, "segment", res.Text)

	res = loc.Read(ctx, sess.Page(), []string{"h1.wp-heading-inline"})
	require.True(t, res.Succeeded, "read failed: %v", res.Err)
	assert.Equal(t, "Broadcasts", res.Text)
}

func TestLocator_DisabledInputActionFailed(t *testing.T) {
	sess, _ := openFixture(t)
	loc := locator.New(locator.WithTimeout(shortTimeout))

	res := loc.Fill(t.Context(), sess.Page(), []string{"#locked", "#title"}, "https://other.test")
	assert.False(t, res.Succeeded)
	assert.Equal(t, locator.OutcomeActionFailed, res.Outcome)
	require.ErrorIs(t, res.Err, locator.ErrActionFailed)
	assert.Equal(t, "#locked", res.Matched)
	assert.Equal(t, []string{"#locked"}, res.Attempted, "no candidates tried after the action failed")

	read := loc.Read(t.Context(), sess.Page(), []string{"#title"})
	require.True(t, read.Succeeded)
	assert.Empty(t, read.Text, "fallback candidate must stay untouched")
}

func TestLocator_CancelMidSearch(t *testing.T) {
	sess, page := openFixture(t)
	loc := locator.New(locator.WithTimeout(5 * time.Second))

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(300*time.Millisecond, cancel)

	start := time.Now()
	res := loc.Click(ctx, sess.Page(), []string{"#never-appears", "#create-broadcast"})
	elapsed := time.Since(start)

	assert.False(t, res.Succeeded)
	assert.Equal(t, locator.OutcomeCanceled, res.Outcome)
	require.ErrorIs(t, res.Err, locator.ErrCanceled)
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.Equal(t, []string{"#never-appears"}, res.Attempted)
	assert.Less(t, elapsed, 2*time.Second, "cancellation must not wait for the candidate timeout")

	// the later candidate was never clicked
	txt, err := page.Locator("#clicks").TextContent()
	require.NoError(t, err)
	assert.Equal(t, "0", txt)
}

func TestLocator_ParallelContexts(t *testing.T) {
	loc := locator.New(locator.WithTimeout(2 * time.Second))

	sessA, pageA := openFixture(t)
	sessB, pageB := openFixture(t)

	errs := make(chan error, 2)
	for _, sess := range []interface{ Page() locator.Page }{sessA, sessB} {
		go func() {
			errs <- loc.Click(t.Context(), sess.Page(), []string{"#create-broadcast"}).Err
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	waitText(t, pageA, "#clicks", "1")
	waitText(t, pageB, "#clicks", "1")
}
