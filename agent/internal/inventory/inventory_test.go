package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectDoesNotPanicAndFillsComputerName(t *testing.T) {
	info := Collect(context.Background())
	assert.NotEmpty(t, info.ComputerName)
}

func TestNonEmptyFiltersBlanks(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, nonEmpty([]string{"a", "", "b", ""}))
}
