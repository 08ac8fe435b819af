package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVirtualURL(t *testing.T) {
	cases := []struct {
		raw     string
		service string
		tail    string
		out     string
	}{
		{raw: "http://ProductService/api/Product/", service: "ProductService", tail: "/api/Product/", out: "http://10.0.0.1:8080/api/Product/"},
		{raw: "http://svcA/api/x?y=1", service: "svcA", tail: "/api/x?y=1", out: "http://10.0.0.1:8080/api/x?y=1"},
		{raw: "https://svc:443/a%2Fb?q=a+b&r=%20", service: "svc", tail: "/a%2Fb?q=a+b&r=%20", out: "https://10.0.0.1:8080/a%2Fb?q=a+b&r=%20"},
		{raw: "http://svc?only=query", service: "svc", tail: "?only=query", out: "http://10.0.0.1:8080?only=query"},
		{raw: "http://svc", service: "svc", tail: "", out: "http://10.0.0.1:8080"},
		{raw: "http://user@svc/p#frag", service: "svc", tail: "/p", out: "http://10.0.0.1:8080/p"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			v, err := ParseVirtualURL(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.service, v.Service)
			assert.Equal(t, tc.tail, v.PathAndQuery)
			assert.Equal(t, tc.out, v.Rewrite("10.0.0.1:8080"))
		})
	}
}

func TestParseVirtualURLRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "svc/path", "://svc", "http:///path", "http://:80/x"} {
		_, err := ParseVirtualURL(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}
