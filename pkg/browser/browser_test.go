package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		ref     string
		want    string
		wantErr string
	}{
		{name: "absolute ref", base: "http://wp.local", ref: "https://other.example.com/x", want: "https://other.example.com/x"},
		{name: "root relative", base: "http://wp.local", ref: "/wp-admin/admin.php?page=pushengage", want: "http://wp.local/wp-admin/admin.php?page=pushengage"},
		{name: "base with trailing slash", base: "http://wp.local/", ref: "/wp-login.php", want: "http://wp.local/wp-login.php"},
		{name: "base with sub path", base: "http://host/wordpress", ref: "/wp-admin/", want: "http://host/wordpress/wp-admin/"},
		{name: "base sub path with slash", base: "http://host/wordpress/", ref: "/wp-admin/", want: "http://host/wordpress/wp-admin/"},
		{name: "document relative", base: "http://host/wordpress/", ref: "wp-admin/", want: "http://host/wordpress/wp-admin/"},
		{name: "empty ref", base: "http://wp.local", ref: " ", wantErr: "empty url"},
		{name: "relative without base", ref: "/wp-admin", wantErr: "without base url"},
		{name: "relative base", base: "wp.local", ref: "/x", wantErr: "not absolute"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveURL(tc.base, tc.ref)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSession_CloseWithoutContext(t *testing.T) {
	s := NewSessionFromPage(nil, "http://wp.local", 0)
	require.NoError(t, s.Close())
}
