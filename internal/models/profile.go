package models

// Profile is the single user document from the "users" collection, keyed by
// the identity id. Email is written once at sign-up and round-tripped
// unchanged on every save since updates are full-document replaces.
type Profile struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Age          string `json:"age"`
	City         string `json:"city"`
	Bio          string `json:"bio"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// ProfileSeed is the sign-up payload that creates the initial profile
// document: empty bio, no image.
type ProfileSeed struct {
	Name string `json:"name"`
	Age  string `json:"age"`
	City string `json:"city"`
}

func (s *ProfileSeed) Fields(email string) map[string]interface{} {
	return map[string]interface{}{
		"name":  s.Name,
		"age":   s.Age,
		"city":  s.City,
		"email": email,
	}
}

// ProfileDraft carries an edit of the user-mutable profile fields. A local
// image ref is uploaded on save; NoImage keeps the stored URL.
type ProfileDraft struct {
	Name  string   `json:"name"`
	Age   string   `json:"age"`
	City  string   `json:"city"`
	Bio   string   `json:"bio"`
	Image ImageRef `json:"profileImage"`
}

// Fields builds the full-replace payload for a save. email and the resolved
// image URL come from the caller because the draft never carries them.
func (d *ProfileDraft) Fields(email, imageURL string) map[string]interface{} {
	fields := map[string]interface{}{
		"name":  d.Name,
		"age":   d.Age,
		"city":  d.City,
		"bio":   d.Bio,
		"email": email,
	}
	if imageURL != "" {
		fields["profileImage"] = imageURL
	} else {
		fields["profileImage"] = nil
	}
	return fields
}

func ProfileFromFields(uid string, fields map[string]interface{}) Profile {
	return Profile{
		UID:          uid,
		Name:         stringField(fields, "name"),
		Age:          stringField(fields, "age"),
		City:         stringField(fields, "city"),
		Bio:          stringField(fields, "bio"),
		Email:        stringField(fields, "email"),
		ProfileImage: stringField(fields, "profileImage"),
	}
}
