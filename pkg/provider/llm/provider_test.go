package llm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/otoscribe/otoscribe/pkg/provider/llm"
)

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	if !llm.IsRateLimited(llm.ErrRateLimited) {
		t.Error("sentinel itself must match")
	}
	if !llm.IsRateLimited(fmt.Errorf("openai: chat completion: %w: status 429", llm.ErrRateLimited)) {
		t.Error("wrapped sentinel must match")
	}
	if llm.IsRateLimited(errors.New("some other failure")) {
		t.Error("unrelated errors must not match")
	}
	if llm.IsRateLimited(nil) {
		t.Error("nil must not match")
	}
}
