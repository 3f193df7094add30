// Package walker turns one scope into flat resource lists, one list call per
// resource kind. A failed kind never aborts the walk of other kinds: every
// outcome is reported as a tri-state KindResult.
package walker

import (
	"context"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

type Walker interface {
	Kind() domain.ResourceKind
	Walk(ctx context.Context, scope domain.Scope) domain.KindResult
}
