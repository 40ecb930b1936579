package factory

import (
	"fmt"
	"strings"

	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

func unknown(backendType string) error {
	return fmt.Errorf("%w %q (want one of %s)", syncerr.ErrUnknownBackend, backendType, strings.Join(Types(), ", "))
}
