package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveIdentity(t *testing.T) {
	tc := testCodec()
	access, err := tc.IssueAccess("user-1", "a@x.com")
	require.NoError(t, err)
	refresh, err := tc.IssueRefresh("user-1", "a@x.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid bearer", "Bearer " + access, true},
		{"missing header", "", false},
		{"no prefix", access, false},
		{"lowercase prefix", "bearer " + access, false}, // prefix match is case-sensitive
		{"wrong scheme", "Basic " + access, false},
		{"refresh as access", "Bearer " + refresh, false},
		{"garbage token", "Bearer nope", false},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			r := httptest.NewRequest("GET", "/schemas", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			id, ok := ResolveIdentity(r, tc)
			req.Equal(tt.ok, ok)
			if ok {
				req.Equal("user-1", id.UserID)
				req.Equal("a@x.com", id.Email)
			} else {
				req.Zero(id)
			}
		})
	}
}
