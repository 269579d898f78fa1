//go:build !unix

package supervisor

import (
	"context"
	"fmt"
	"net"
)

// Listen binds address. Without SO_REUSEPORT only one worker can bind, so run
// with WORKERS=0 on these platforms.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}
	return ln, nil
}
