package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInvalidState: http.StatusBadRequest,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%s: expected %d got %d", kind, want, got)
		}
	}
}

func TestFromDBTranslatesGormErrors(t *testing.T) {
	if k := KindOf(FromDB(gorm.ErrRecordNotFound, "sale")); k != KindNotFound {
		t.Fatalf("expected not found got %s", k)
	}
	if k := KindOf(FromDB(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "user")); k != KindConflict {
		t.Fatalf("expected conflict got %s", k)
	}
	if k := KindOf(FromDB(gorm.ErrForeignKeyViolated, "client")); k != KindConflict {
		t.Fatalf("expected conflict got %s", k)
	}
	if k := KindOf(FromDB(errors.New("boom"), "client")); k != KindInternal {
		t.Fatalf("expected internal got %s", k)
	}
	if FromDB(nil, "x") != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestFromDBKeepsAppErrors(t *testing.T) {
	orig := InvalidState("sale is already %s", "approved")
	got := FromDB(fmt.Errorf("tx: %w", orig), "sale")
	if !Is(got, KindInvalidState) {
		t.Fatalf("expected invalid state got %v", got)
	}
}
