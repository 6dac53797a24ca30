package memory_test

import (
	"testing"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunSnapshotStoreContract(t, memory.NewStore())
}
