package domain

// Identity is the signed-in user as reported by an identity provider.
// A nil *Identity means signed out.
type Identity struct {
	ID          string  `json:"id" validate:"required,max=128"`
	DisplayName string  `json:"displayName" validate:"required,max=128"`
	AvatarURL   *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// Clone returns a copy that shares nothing with i.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.AvatarURL != nil {
		avatar := *i.AvatarURL
		c.AvatarURL = &avatar
	}
	return &c
}
