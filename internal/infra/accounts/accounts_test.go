package accounts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPanelUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"marioswoodfiredpizza.com.au", "marioswoodfiredp"},
		{"acme.com", "acme"},
		{"42plumbing.net", "42plumbing"},
	}
	for _, c := range cases {
		got := PanelUsername(c.in)
		require.Equal(t, c.want, got, "input %q", c.in)
		require.LessOrEqual(t, len(got), 16)
	}
}

func TestMailServerHostname(t *testing.T) {
	require.Equal(t, "mail.acme.com", MailServerHostname("acme.com"))
}

func TestGeneratePasswordHasAllClasses(t *testing.T) {
	for i := 0; i < 20; i++ {
		password, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, password, 20)
		require.True(t, strings.ContainsAny(password, passwordLetters))
		require.True(t, strings.ContainsAny(password, passwordDigits))
		require.True(t, strings.ContainsAny(password, passwordSymbols))
	}
}

func TestCreateMailboxIsIdempotent(t *testing.T) {
	m := NewMockProvisioner()

	first, err := m.CreateMailbox(context.Background(), "acme.com", "admin")
	require.NoError(t, err)
	require.Equal(t, "admin@acme.com", first.Email)
	require.NotEmpty(t, first.Password)

	second, err := m.CreateMailbox(context.Background(), "acme.com", "admin")
	require.NoError(t, err)
	require.Equal(t, first.Email, second.Email)
	// existing mailbox is never reset
	require.Equal(t, first.Password, second.Password)
	require.Equal(t, 2, m.CreateMailboxCalls)
}

func TestCreateControlPanelAccount(t *testing.T) {
	m := NewMockProvisioner()

	account, err := m.CreateControlPanelAccount(context.Background(), "marioswoodfiredpizza.com.au", "Mario's Woodfired Pizza!!")
	require.NoError(t, err)
	require.Equal(t, "marioswoodfiredp", account.Username)
	require.NotEmpty(t, account.Password)
	require.Contains(t, account.PanelURL, account.Username)

	again, err := m.CreateControlPanelAccount(context.Background(), "marioswoodfiredpizza.com.au", "Mario's Woodfired Pizza!!")
	require.NoError(t, err)
	require.Equal(t, account.Password, again.Password)
}
