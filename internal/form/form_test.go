package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_Validate(t *testing.T) {
	rules := Rules{
		"username":         {Required(), Length(3, 12)},
		"email":            {Required(), Email()},
		"password":         {Required()},
		"confirm_password": {Required(), EqualTo("password")},
	}

	tests := []struct {
		name   string
		values Values
		failed []string
	}{
		{
			name:   "valid",
			values: Values{"username": "alice", "email": "a@x.com", "password": "pw", "confirm_password": "pw"},
		},
		{
			name:   "everything missing",
			values: Values{},
			failed: []string{"username", "email", "password", "confirm_password"},
		},
		{
			name:   "short username and bad email",
			values: Values{"username": "al", "email": "nope", "password": "pw", "confirm_password": "pw"},
			failed: []string{"username", "email"},
		},
		{
			name:   "long username",
			values: Values{"username": "abcdefghijklm", "email": "a@x.com", "password": "pw", "confirm_password": "pw"},
			failed: []string{"username"},
		},
		{
			name:   "mismatched confirmation",
			values: Values{"username": "alice", "email": "a@x.com", "password": "pw", "confirm_password": "px"},
			failed: []string{"confirm_password"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := rules.Validate(tc.values)
			if len(tc.failed) == 0 {
				assert.Nil(t, errs)
				return
			}
			require.NotNil(t, errs)
			assert.Len(t, errs, len(tc.failed))
			for _, f := range tc.failed {
				assert.True(t, errs.Has(f), "expected error on %s", f)
				assert.Len(t, errs.Get(f), 1, "first failing rule only")
			}
		})
	}
}

func TestErrors_AddAndError(t *testing.T) {
	var errs Errors
	errs = errs.Add("email", "taken")
	errs = errs.Add("username", "taken")

	assert.True(t, errs.Has("email"))
	assert.False(t, errs.Has("password"))
	assert.Equal(t, "invalid form: email: taken; username: taken", errs.Error())
}

func TestErrors_Merge(t *testing.T) {
	var errs Errors
	errs = errs.Merge(nil)
	assert.Nil(t, errs)

	errs = errs.Merge(Errors{"email": {"bad"}})
	errs = errs.Merge(Errors{"email": {"taken"}, "password": {"required"}})

	assert.Equal(t, []string{"bad", "taken"}, errs.Get("email"))
	assert.Equal(t, []string{"required"}, errs.Get("password"))
}
