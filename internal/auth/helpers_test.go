package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shop-auth/internal/permission"
	"shop-auth/pkg/logger"
)

var testLocation = time.FixedZone("UTC+2", 2*60*60)

func testKey(seed string) []byte {
	return []byte(strings.Repeat(seed, MinKeyBytes/len(seed)+1)[:MinKeyBytes])
}

func newTestModel(t *testing.T) *permission.Model {
	t.Helper()
	h, err := permission.NewHierarchy("USER", "STAFF", "ADMIN")
	require.NoError(t, err)
	c, err := permission.NewCatalog("ITEM", "USER", "STATISTIC", "SYSTEM")
	require.NoError(t, err)
	return permission.NewModel(h, c)
}

type fixture struct {
	keys   *KeyManager
	codec  *Codec
	issuer *Issuer
	model  *permission.Model
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		keys:  NewKeyManager(),
		model: newTestModel(t),
		now:   time.Now().Truncate(time.Second),
	}
	require.NoError(t, f.keys.Install(testKey("k1")))
	f.codec = NewCodec(f.keys, testLocation, WithClock(func() time.Time { return f.now }))
	f.issuer = NewIssuer(f.codec, f.model.Hierarchy())
	return f
}

func (f *fixture) filter() *Filter {
	return NewFilter(f.codec, f.model, logger.Discard())
}

func (f *fixture) perms(t *testing.T, identity string, authorities ...string) *permission.Set {
	t.Helper()
	s := permission.NewSet(identity)
	for _, a := range authorities {
		op, fn, err := f.model.Catalog().ParseAuthority(a)
		require.NoError(t, err)
		require.NoError(t, f.model.AddFunction(s, op, fn))
	}
	return s
}
