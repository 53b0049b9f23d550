package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callErr(status int, body string) error {
	return msalerrors.CallErr{
		Resp: &http.Response{StatusCode: status},
		Err:  errors.New(body),
	}
}

func TestClassifySilent(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantInteraction bool
	}{
		{"invalid grant", callErr(http.StatusBadRequest, "invalid_grant"), true},
		{"unauthorized", callErr(http.StatusUnauthorized, "expired"), true},
		{"server error", callErr(http.StatusServiceUnavailable, "try later"), false},
		{"forbidden without code", callErr(http.StatusForbidden, "blocked by policy"), false},
		{"wrapped pointer", fmt.Errorf("refresh: %w", &msalerrors.CallErr{Resp: &http.Response{StatusCode: http.StatusBadRequest}, Err: errors.New("x")}), true},
		{"no response", msalerrors.CallErr{Err: errors.New("dial tcp: connection refused")}, false},
		{"cache miss", errors.New("no token found"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifySilent(context.Background(), tt.err)
			assert.Equal(t, tt.wantInteraction, errors.Is(got, ErrInteractionRequired), "got %v", got)
		})
	}
}

func TestClassifySilent_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := classifySilent(ctx, errors.New("whatever"))
	assert.ErrorIs(t, got, context.Canceled)
	assert.NotErrorIs(t, got, ErrInteractionRequired)
}

type bytesCache struct{ data []byte }

func (b *bytesCache) Marshal() ([]byte, error)  { return b.data, nil }
func (b *bytesCache) Unmarshal(d []byte) error { b.data = append([]byte(nil), d...); return nil }

func TestMemoryCache(t *testing.T) {
	c := &MemoryCache{}
	ctx := context.Background()

	// nothing stored yet: Replace leaves the target untouched
	target := &bytesCache{data: []byte("untouched")}
	require.NoError(t, c.Replace(ctx, target, cache.ReplaceHints{}))
	assert.Equal(t, "untouched", string(target.data))

	require.NoError(t, c.Export(ctx, &bytesCache{data: []byte(`{"AccessToken":{}}`)}, cache.ExportHints{}))
	assert.Equal(t, len(`{"AccessToken":{}}`), c.Len())

	require.NoError(t, c.Replace(ctx, target, cache.ReplaceHints{}))
	assert.Equal(t, `{"AccessToken":{}}`, string(target.data))
}

func TestNewMSAL_RequiresClientID(t *testing.T) {
	_, err := NewMSAL(MSALConfig{})
	assert.Error(t, err)
}
