package identity

import (
	"net/url"
	"strings"
)

// RealmURL is {authServerUrl}/realms/{realm}, also the OIDC issuer
func RealmURL(authServerURL, realm string) string {
	return strings.TrimRight(authServerURL, "/") + "/realms/" + url.PathEscape(realm)
}

func openIDConnectURL(authServerURL, realm, endpoint string) string {
	return RealmURL(authServerURL, realm) + "/protocol/openid-connect/" + endpoint
}

func UserInfoURL(authServerURL, realm string) string {
	return openIDConnectURL(authServerURL, realm, "userinfo")
}

func TokenURL(authServerURL, realm string) string {
	return openIDConnectURL(authServerURL, realm, "token")
}

func LogoutURL(authServerURL, realm string) string {
	return openIDConnectURL(authServerURL, realm, "logout")
}

// RegistrationsURL is the self-registration variant of the auth endpoint
func RegistrationsURL(authServerURL, realm string) string {
	return openIDConnectURL(authServerURL, realm, "registrations")
}

func AccountURL(authServerURL, realm string) string {
	return RealmURL(authServerURL, realm) + "/account"
}

func AdminUsersURL(authServerURL, realm string) string {
	return strings.TrimRight(authServerURL, "/") + "/admin/realms/" + url.PathEscape(realm) + "/users"
}

// UserInfoURLFor and TokenURLFor read the endpoints off a provider
func UserInfoURLFor(p Provider) string {
	return UserInfoURL(p.AuthServerURL(), p.Realm())
}

func TokenURLFor(p Provider) string {
	return TokenURL(p.AuthServerURL(), p.Realm())
}
