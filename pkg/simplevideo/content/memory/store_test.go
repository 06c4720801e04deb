package memory_test

import (
	"testing"

	"github.com/tendant/simple-video/pkg/simplevideo/content/contenttest"
	"github.com/tendant/simple-video/pkg/simplevideo/content/memory"
)

func TestStoreContract(t *testing.T) {
	contenttest.Run(t, memory.New())
}
