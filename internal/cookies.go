package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "fs_access_token"
	COOKIE_REDIRECT_NAME     = "fs_redirect_to"
)
