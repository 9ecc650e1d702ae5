package domain

// ProfileCacheKey is the cache entry holding the signed-in user's profile.
const ProfileCacheKey = "user_profile"

// Profile is the slice of the account profile the status surfaces show.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
