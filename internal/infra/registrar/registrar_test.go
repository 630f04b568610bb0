package registrar

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
	"github.com/stretchr/testify/require"
)

func TestSanitizeLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Mario's Woodfired Pizza!!", "marioswoodfiredpizza"},
		{"ACME Corp", "acmecorp"},
		{"café & co", "cafco"},
		{"42 Plumbing", "42plumbing"},
		{"!!!", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, SanitizeLabel(c.in), "input %q", c.in)
	}
}

func TestSanitizeLabelTruncatesAt63(t *testing.T) {
	long := ""
	for i := 0; i < 10; i++ {
		long += "abcdefghij"
	}
	require.Len(t, SanitizeLabel(long), 63)
}

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		TLDPriority:       []string{".com.au", ".com"},
		RegistrationYears: 1,
	}
}

func TestSearchDomainPrefersFirstTLD(t *testing.T) {
	m := NewMockRegistrar(testDeliveryConfig())

	domain, err := m.SearchDomain(context.Background(), "Mario's Woodfired Pizza!!")
	require.NoError(t, err)
	require.Equal(t, "marioswoodfiredpizza.com.au", domain)
}

func TestSearchDomainFallsBackWhenTaken(t *testing.T) {
	m := NewMockRegistrar(testDeliveryConfig())
	m.MarkTaken("marioswoodfiredpizza.com.au")

	domain, err := m.SearchDomain(context.Background(), "Mario's Woodfired Pizza!!")
	require.NoError(t, err)
	require.Equal(t, "marioswoodfiredpizza.com", domain)
}

func TestSearchDomainFailsWhenAllTaken(t *testing.T) {
	m := NewMockRegistrar(testDeliveryConfig())
	m.MarkTaken("acmecorp.com.au")
	m.MarkTaken("acmecorp.com")

	_, err := m.SearchDomain(context.Background(), "ACME Corp")
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
}

func TestSearchDomainRejectsEmptyLabel(t *testing.T) {
	m := NewMockRegistrar(testDeliveryConfig())

	_, err := m.SearchDomain(context.Background(), "!!!")
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
}

func TestRegisterTakenDomainIsPermanent(t *testing.T) {
	m := NewMockRegistrar(testDeliveryConfig())
	m.MarkTaken("acmecorp.com.au")

	_, err := m.Register(context.Background(), "acmecorp.com.au", uuid.New())
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
}

func TestUpdateNameserversRequiresRegistration(t *testing.T) {
	m := NewMockRegistrar(testDeliveryConfig())
	ns := []string{"ns1.example.net", "ns2.example.net"}

	err := m.UpdateNameservers(context.Background(), "acmecorp.com.au", ns)
	require.Error(t, err)

	_, err = m.Register(context.Background(), "acmecorp.com.au", uuid.New())
	require.NoError(t, err)
	require.NoError(t, m.UpdateNameservers(context.Background(), "acmecorp.com.au", ns))
	require.Equal(t, ns, m.NameserversOnFile("acmecorp.com.au"))
}
