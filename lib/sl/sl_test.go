package sl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	a := Err(errors.New("boom"))
	assert.Equal(t, "error", a.Key)
	assert.Equal(t, "boom", a.Value.String())

	assert.Equal(t, "", Err(nil).Value.String())
}

func TestSecret(t *testing.T) {
	assert.Equal(t, "?", Secret("").Value.String())
	assert.Equal(t, "***", Secret("abc").Value.String())
	assert.Equal(t, "12345***", Secret("1234567890").Value.String())
}

func TestModuleAndUser(t *testing.T) {
	assert.Equal(t, "mod", Module("assistant").Key)
	assert.Equal(t, "tg:1", User("tg:1").Value.String())
}
