package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/domain"
	"github.com/prohmpiriya/hr-identity/apps/auth-manager/internal/repository"
	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/retry"
)

// ErrBindRejected is returned by DirectoryConn.Bind when the directory refused the secret
var ErrBindRejected = errors.New("directory rejected bind")

// Attributes requested for a directory account, used to name it
var directoryAttributes = []string{"displayName", "givenName", "sn", "cn"}

// DirectoryEntry is one search hit
type DirectoryEntry struct {
	DN         string
	Attributes map[string]string
}

// DisplayName is displayName, else "givenName sn", else cn
func (e DirectoryEntry) DisplayName() string {
	if name := strings.TrimSpace(e.Attributes["displayName"]); name != "" {
		return name
	}
	if name := strings.TrimSpace(e.Attributes["givenName"] + " " + e.Attributes["sn"]); name != "" {
		return name
	}
	return e.Attributes["cn"]
}

// DirectoryConn is an open directory session
type DirectoryConn interface {
	// Bind authenticates the session; a refused secret yields ErrBindRejected
	Bind(dn, password string) error
	// Search runs a subtree search under baseDN
	Search(baseDN, filter string, attributes []string) ([]DirectoryEntry, error)
	Close() error
}

// DirectoryDialer opens directory sessions
type DirectoryDialer interface {
	Dial(ctx context.Context) (DirectoryConn, error)
}

// DirectoryConfig describes where and how to search for accounts
type DirectoryConfig struct {
	BaseDN       string
	BindDN       string
	BindPassword string
	// UserFilter is a fmt pattern with one %s for the escaped account name
	UserFilter string
	Retry      *retry.Config
}

// DirectoryAdapter delegates the secret check to LDAP / Active Directory and
// requires a pre-provisioned ldap credential mapping the account to a local user
type DirectoryAdapter struct {
	dialer      DirectoryDialer
	cfg         DirectoryConfig
	credentials repository.CredentialRepository
	users       repository.UserRepository
}

// NewDirectoryAdapter creates a DirectoryAdapter
func NewDirectoryAdapter(dialer DirectoryDialer, cfg DirectoryConfig, credentials repository.CredentialRepository, users repository.UserRepository) *DirectoryAdapter {
	if cfg.UserFilter == "" {
		cfg.UserFilter = "(sAMAccountName=%s)"
	}
	return &DirectoryAdapter{dialer: dialer, cfg: cfg, credentials: credentials, users: users}
}

// Authenticate binds as the account found for identifier
func (a *DirectoryAdapter) Authenticate(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	// an empty password would be an unauthenticated bind, which succeeds
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: empty identifier or password", domain.ErrInvalidCredentials)
	}

	conn, err := a.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", domain.ErrDirectoryUnavailable, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logger.Get().Warn("Failed to close directory connection", zap.Error(cerr))
		}
	}()

	if a.cfg.BindDN != "" {
		if err := conn.Bind(a.cfg.BindDN, a.cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("%w: service bind: %v", domain.ErrDirectoryUnavailable, err)
		}
	}

	filter := fmt.Sprintf(a.cfg.UserFilter, ldap.EscapeFilter(identifier))
	entries, err := conn.Search(a.cfg.BaseDN, filter, directoryAttributes)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrDirectoryUnavailable, err)
	}
	if len(entries) != 1 {
		return nil, fmt.Errorf("%w: %d directory entries for account", domain.ErrInvalidCredentials, len(entries))
	}

	if err := conn.Bind(entries[0].DN, password); err != nil {
		if errors.Is(err, ErrBindRejected) {
			return nil, fmt.Errorf("%w: directory bind refused", domain.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%w: user bind: %v", domain.ErrDirectoryUnavailable, err)
	}

	cred, err := a.credentials.FindActiveByIdentifier(ctx, domain.CredentialLDAP, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: credential lookup: %v", domain.ErrInvalidCredentials, err)
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrDirectoryUserNotAuthorized)
	}

	result, err := resolveUser(ctx, a.users, cred)
	if err != nil {
		return nil, err
	}
	result.DisplayName = entries[0].DisplayName()
	logger.Get().Debug("Directory bind succeeded",
		zap.String("user_id", result.User.ID),
		zap.String("display_name", result.DisplayName))
	return result, nil
}

// dial retries transport failures only
func (a *DirectoryAdapter) dial(ctx context.Context) (DirectoryConn, error) {
	var conn DirectoryConn
	result := retry.Do(ctx, a.cfg.Retry, func(ctx context.Context) error {
		c, err := a.dialer.Dial(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err := result.Error(); err != nil {
		return nil, err
	}
	return conn, nil
}

// LDAPDialer dials a directory with github.com/go-ldap/ldap/v3
type LDAPDialer struct {
	URL     string
	Timeout time.Duration
}

// Dial connects and applies the operation timeout to the session
func (d *LDAPDialer) Dial(ctx context.Context) (DirectoryConn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	conn, err := ldap.DialURL(d.URL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(timeout)
	return &ldapConn{conn: conn, timeLimit: int(timeout / time.Second)}, nil
}

type ldapConn struct {
	conn      *ldap.Conn
	timeLimit int
}

func (c *ldapConn) Bind(dn, password string) error {
	err := c.conn.Bind(dn, password)
	if err == nil {
		return nil
	}
	if ldap.IsErrorAnyOf(err,
		ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform,
	) {
		return fmt.Errorf("%w: %v", ErrBindRejected, err)
	}
	return err
}

func (c *ldapConn) Search(baseDN, filter string, attributes []string) ([]DirectoryEntry, error) {
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, // more than one hit is already ambiguous
		c.timeLimit,
		false,
		filter,
		attributes,
		nil,
	)
	res, err := c.conn.Search(req)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	entries := make([]DirectoryEntry, 0, len(res.Entries))
	for _, e := range res.Entries {
		attrs := make(map[string]string, len(attributes))
		for _, name := range attributes {
			attrs[name] = e.GetAttributeValue(name)
		}
		entries = append(entries, DirectoryEntry{DN: e.DN, Attributes: attrs})
	}
	return entries, nil
}

func (c *ldapConn) Close() error {
	return c.conn.Close()
}
