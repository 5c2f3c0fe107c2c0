package memory

import (
	"testing"

	"github.com/xraph/grantor/store"
	"github.com/xraph/grantor/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}
