// Package assets holds static files served by the API.
package assets

import _ "embed"

// AvatarPlaceholder is shown for patients without a usable avatar.
//
//go:embed avatar-placeholder.svg
var AvatarPlaceholder []byte

const AvatarPlaceholderType = "image/svg+xml"
