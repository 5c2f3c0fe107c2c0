package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
)

type statusCoder interface {
	StatusCode() int
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	sc, ok := err.(statusCoder)
	require.True(t, ok, "%T carries no status code", err)
	return sc.StatusCode()
}

func TestMapErrorPassesThroughCancellation(t *testing.T) {
	assert.NoError(t, mapError(nil))

	cancelled := fmt.Errorf("%w: resolve: context canceled", grantor.ErrCancelled)
	assert.ErrorIs(t, mapError(cancelled), grantor.ErrCancelled)
}

func TestMapErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{grantor.ErrNotFound, http.StatusNotFound},
		{grantor.ErrForbidden, http.StatusForbidden},
		{grantor.ErrConflict, http.StatusConflict},
		{grantor.ErrInvalidInput, http.StatusBadRequest},
		{grantor.ErrInvalidReference, http.StatusBadRequest},
		{grantor.ErrStorageUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			mapped := mapError(fmt.Errorf("%w: role", tt.err))
			require.Error(t, mapped)
			assert.Equal(t, tt.want, statusOf(t, mapped))
		})
	}
}

func TestParseEffect(t *testing.T) {
	e, err := parseEffect("")
	require.NoError(t, err)
	assert.Equal(t, grant.Effect(""), e)

	e, err = parseEffect("deny")
	require.NoError(t, err)
	assert.Equal(t, grant.EffectDeny, e)

	_, err = parseEffect("maybe")
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	rid := id.NewRoleID()
	ids, err := parseRoleIDs("role_ids", []string{rid.String()})
	require.NoError(t, err)
	assert.Equal(t, []id.RoleID{rid}, ids)

	_, err = parseRoleIDs("role_ids", []string{id.NewPermissionID().String()})
	assert.Error(t, err)

	parent, err := parseOptionalRoleID("parent_id", "")
	require.NoError(t, err)
	assert.Nil(t, parent)
}
