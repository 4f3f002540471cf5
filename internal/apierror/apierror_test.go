package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Invalid("x")))
	assert.Equal(t, http.StatusConflict, Status(Conflict("x")))
	assert.Equal(t, http.StatusNotFound, Status(NotFound("session", 1)))
	assert.Equal(t, http.StatusForbidden, Status(Forbidden("x")))
	assert.Equal(t, http.StatusInternalServerError, Status(Persistence("save", errors.New("db down"))))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("untyped")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("close: %w", Conflict("not open"))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestFromErrorHidesCause(t *testing.T) {
	env := FromError(Persistence("close session", errors.New("pq: deadlock detected")))
	assert.Equal(t, "could not close session", env.Detail)
	assert.NotContains(t, env.Detail, "deadlock")

	env = FromError(errors.New("raw"))
	assert.Equal(t, "internal server error", env.Detail)

	env = FromError(NotFound("session", "abc"))
	assert.Equal(t, KindNotFound, env.Kind)
	assert.Equal(t, "abc", env.Extra["id"])
}
