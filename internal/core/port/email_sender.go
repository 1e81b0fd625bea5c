package port

import "context"

// OneTimeCodeSender delivers a freshly generated one-time code to the supplied
// destination address. The sender owns code generation and returns the
// canonical value actually dispatched; callers must store exactly what is
// returned for the later comparison.
type OneTimeCodeSender interface {
	SendOneTimeCode(ctx context.Context, destination string) (string, error)
}
