package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinErrors(t *testing.T) {
	assert.Equal(t, &Error{Status: 0, Code: CodePermission, Message: MsgPermission}, Permission())
	assert.Equal(t, &Error{Status: 0, Code: CodeComm, Message: MsgComm}, Comm())
	assert.Equal(t, &Error{Status: 500, Code: CodeUnknown, Message: MsgUnknown}, Unknown(500))
	assert.Equal(t, &Error{Status: 200, Code: CodeOther, Message: "not json"}, Other(200, "not json"))
}

func TestError_String(t *testing.T) {
	assert.Equal(t, "err-comm: Could not communicate with the server", Comm().Error())
	assert.Equal(t, "err-unknown (404): Unknown error", Unknown(404).Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}

func TestAs_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("list users: %w", Unknown(503))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, 503, e.Status)
	assert.True(t, HasCode(wrapped, CodeUnknown))
	assert.False(t, HasCode(wrapped, CodeComm))

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("call: %w", Unknown(418))
	assert.ErrorIs(t, err, Unknown(500))
	assert.NotErrorIs(t, err, Comm())
}

func TestWithHelpers_Copy(t *testing.T) {
	orig := Permission()
	localized := orig.WithMessage("Accès refusé")

	assert.Equal(t, MsgPermission, orig.Message, "original must not change")
	assert.Equal(t, "Accès refusé", localized.Message)

	narrowed := Unknown(409).WithCode(CodeOther)
	assert.Equal(t, CodeOther, narrowed.Code)
	assert.Equal(t, 409, narrowed.Status)
}

func TestCode_Valid(t *testing.T) {
	for _, c := range []Code{CodePermission, CodeComm, CodeUnknown, CodeOther} {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Code("err-timeout").Valid())
}

func TestIsConfig(t *testing.T) {
	assert.True(t, IsConfig(fmt.Errorf("%w: id", ErrMissingParam)))
	assert.True(t, IsConfig(ErrBaseURLMissing))
	assert.False(t, IsConfig(Comm()))
}
