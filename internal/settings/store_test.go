package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/esgp/internal/models"
)

func TestNew_BuiltinDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, models.Setting{Family: models.MD5, Length: 10}, s.Default)
	assert.Empty(t, s.Overrides)
}

func TestResolve_CascadePrecedence(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(models.DomainOverride{
		Domain:  "example.com",
		Setting: models.Setting{Family: models.SHA, Length: 16},
	}))

	assert.Equal(t, models.Setting{Family: models.SHA, Length: 16}, s.Resolve("example.com"))
	assert.Equal(t, models.Setting{Family: models.MD5, Length: 10}, s.Resolve("other.com"))
}

func TestResolve_ExactCaseSensitiveMatch(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(models.DomainOverride{
		Domain:  "Example.com",
		Setting: models.Setting{Family: models.SHA, Length: 20},
	}))

	assert.Equal(t, s.Default, s.Resolve("example.com"))
	assert.Equal(t, s.Default, s.Resolve("www.Example.com"))
	assert.Equal(t, 20, s.Resolve("Example.com").Length)
}

func TestResolve_DuplicatesFirstMatchWins(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(models.DomainOverride{Domain: "dup.io", Setting: models.Setting{Family: models.SHA, Length: 12}}))
	require.NoError(t, s.Append(models.DomainOverride{Domain: "dup.io", Setting: models.Setting{Family: models.MD5, Length: 30}}))

	assert.Equal(t, models.Setting{Family: models.SHA, Length: 12}, s.Resolve("dup.io"))
}

func TestNewOverride_PrefilledFromDefault(t *testing.T) {
	s := New()
	require.NoError(t, s.SetDefault(models.Setting{Family: models.SHA, Length: 22}))

	o := s.NewOverride("site.io")
	assert.Equal(t, "site.io", o.Domain)
	assert.Equal(t, models.Setting{Family: models.SHA, Length: 22}, o.Setting)
}

func TestEdits(t *testing.T) {
	s := New()
	a := models.DomainOverride{Domain: "a.io", Setting: models.Setting{Length: 5}}
	b := models.DomainOverride{Domain: "b.io", Setting: models.Setting{Length: 6}}
	c := models.DomainOverride{Domain: "c.io", Setting: models.Setting{Length: 7}}

	require.NoError(t, s.Append(a))
	require.NoError(t, s.Append(c))
	require.NoError(t, s.Insert(1, b))
	assert.Equal(t, []models.DomainOverride{a, b, c}, s.Overrides)

	snapshot := s.Overrides
	b2 := models.DomainOverride{Domain: "b.io", Setting: models.Setting{Family: models.SHA, Length: 9}}
	require.NoError(t, s.Replace(1, b2))
	assert.Equal(t, b2, s.Overrides[1])

	require.NoError(t, s.Remove(0))
	assert.Equal(t, []models.DomainOverride{b2, c}, s.Overrides)
	assert.Len(t, snapshot, 3, "earlier slice header keeps its rows")

	assert.ErrorIs(t, s.Remove(2), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Replace(-1, a), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Insert(5, a), ErrIndexOutOfRange)
}

func TestEdits_Validation(t *testing.T) {
	s := New()

	err := s.Append(models.DomainOverride{Domain: "x.io", Setting: models.Setting{Length: 100}})
	assert.ErrorIs(t, err, models.ErrInvalidLength)

	err = s.Append(models.DomainOverride{Domain: DefaultsSection, Setting: BuiltinDefault})
	assert.ErrorIs(t, err, ErrReservedDomain)

	err = s.Append(models.DomainOverride{Domain: ImplicitSection, Setting: BuiltinDefault})
	assert.ErrorIs(t, err, ErrReservedDomain)
	require.NoError(t, s.Append(s.NewOverride("x.io")))
	err = s.Replace(0, models.DomainOverride{Domain: ImplicitSection, Setting: BuiltinDefault})
	assert.ErrorIs(t, err, ErrReservedDomain)
	require.NoError(t, s.Remove(0))

	assert.ErrorIs(t, s.SetDefault(models.Setting{Length: -1}), models.ErrInvalidLength)
	assert.Equal(t, BuiltinDefault, s.Default)

	assert.NoError(t, s.Append(s.NewOverride("")), "blank rows are allowed until saved")
}
