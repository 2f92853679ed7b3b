package authrpc

// Credential method names accepted by Authenticate
const (
	TypePassword = "password"
	TypeLDAP     = "ldap"
	TypeAPIKey   = "api_key"
)

type AuthenticateRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Type       string `json:"type"`
}

type AuthenticateResponse struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email,omitempty"`
	FirstName    string   `json:"first_name,omitempty"`
	LastName     string   `json:"last_name,omitempty"`
	FullName     string   `json:"full_name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
	RefreshToken string   `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
	DeviceInfo   string `json:"device_info,omitempty"`
}

type RoleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UserProfile struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	Roles       []RoleInfo `json:"roles"`
	Permissions []string   `json:"permissions"`
	CreatedAt   string     `json:"created_at,omitempty"`
}

// RoleNames returns the names of the profile's roles
func (p *UserProfile) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, r.Name)
	}
	return names
}

type RefreshTokenResponse struct {
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

type LogoutRequest struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token,omitempty"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RBAC administration

type GetUserPermissionsRequest struct {
	UserID string `json:"user_id"`
}

type GetUserPermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type AssignRolesRequest struct {
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids"`
}

type UserResponse struct {
	User UserProfile `json:"user"`
}

type RoleDetail struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

type RoleResponse struct {
	Role RoleDetail `json:"role"`
}

type SetRolePermissionsRequest struct {
	RoleID      string   `json:"role_id"`
	Permissions []string `json:"permissions"`
}

type ListRolesRequest struct{}

type ListRolesResponse struct {
	Roles []RoleDetail `json:"roles"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type PermissionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

type PermissionResponse struct {
	Permission PermissionInfo `json:"permission"`
}

type ListPermissionsRequest struct{}

type ListPermissionsResponse struct {
	Permissions []PermissionInfo `json:"permissions"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name"`
	Resource    string `json:"resource,omitempty"`
	Action      string `json:"action,omitempty"`
	Description string `json:"description,omitempty"`
}

type UpdatePermissionRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Resource    string `json:"resource,omitempty"`
	Action      string `json:"action,omitempty"`
	Description string `json:"description,omitempty"`
}

type DeletePermissionRequest struct {
	ID string `json:"id"`
}

type DeletePermissionResponse struct {
	Success bool `json:"success"`
}

// User provisioning

type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	// Password creates a password credential when set
	Password string `json:"password,omitempty"`
	// DirectoryAccount creates a directory credential when set
	DirectoryAccount string   `json:"directory_account,omitempty"`
	RoleIDs          []string `json:"role_ids,omitempty"`
}

type SetUserActiveRequest struct {
	UserID string `json:"user_id"`
	Active bool   `json:"active"`
}

type CredentialInfo struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Identifier  string `json:"identifier"`
	IsActive    bool   `json:"is_active"`
	LastLoginAt string `json:"last_login_at,omitempty"`
}

type SetCredentialActiveRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type CredentialResponse struct {
	Credential CredentialInfo `json:"credential"`
}

type ChangePasswordRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type ChangePasswordResponse struct {
	Success bool `json:"success"`
}

type ListUsersRequest struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Search string `json:"search,omitempty"`
}

type ListUsersResponse struct {
	Users []UserProfile `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
