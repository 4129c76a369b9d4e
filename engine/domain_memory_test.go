package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainMemory(t *testing.T) {
	dm := NewDomainMemory(time.Hour)
	defer dm.Stop()

	assert.False(t, dm.Protected("example.com"))
	dm.Remember("example.com")
	assert.True(t, dm.Protected("example.com"))
	assert.False(t, dm.Protected("other.example.com"))
}

func TestDomainMemory_Expiry(t *testing.T) {
	dm := NewDomainMemory(10 * time.Millisecond)
	defer dm.Stop()

	dm.Remember("example.com")
	time.Sleep(20 * time.Millisecond)
	assert.False(t, dm.Protected("example.com"))
}

func TestDomainMemory_StopTwice(t *testing.T) {
	dm := NewDomainMemory(time.Hour)
	dm.Stop()
	assert.NotPanics(t, dm.Stop)
}
