package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfigDocument_UnknownKeyRejected(t *testing.T) {
	err := validateConfigDocument("nonsense", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidateConfigDocument_KnownKeysAccepted(t *testing.T) {
	cases := map[string]string{
		"security":         `{"require_auth_token_for_read":true}`,
		"push_rules":       `{"allow_overwrite":false}`,
		"frontend":         `{"icon":"maven"}`,
		"badge":            `{"color":"#4c1"}`,
		"project":          `{}`,
		"page":             `{"default_page_size":50}`,
		"maven":            `{"generate_checksums":true}`,
		"maven_push_rules": `{"push_policy":"Release","allow_overwrite":false}`,
		"maven_proxy":      `{"upstream_url":"https://repo1.maven.org/maven2"}`,
		"npm":              `{"allow_unpublish":false}`,
	}
	for key, doc := range cases {
		err := validateConfigDocument(key, []byte(doc))
		assert.NoError(t, err, "key %q", key)
	}
}

func TestValidateConfigDocument_MavenPushRulesRejectsUnknownPolicy(t *testing.T) {
	err := validateConfigDocument("maven_push_rules", []byte(`{"push_policy":"Nonsense"}`))
	assert.Error(t, err)
}

func TestValidateConfigDocument_MavenProxyRequiresUpstreamURL(t *testing.T) {
	err := validateConfigDocument("maven_proxy", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidateConfigDocument_PageRejectsNegativeSize(t *testing.T) {
	err := validateConfigDocument("page", []byte(`{"default_page_size":-1}`))
	assert.Error(t, err)
}
