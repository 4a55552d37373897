package models

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestImageRefClassification(t *testing.T) {
	cases := []struct {
		in   string
		kind ImageKind
	}{
		{"", ImageNone},
		{"https://firebasestorage.googleapis.com/v0/b/app/o/x?alt=media", ImageRemote},
		{"http://localhost:8080/uploads/event_images/1", ImageRemote},
		{"file:///var/mobile/tmp/img.jpg", ImageLocal},
		{"content://media/external/images/1", ImageLocal},
		{"/home/u/pictures/img.jpg", ImageLocal},
	}

	for _, c := range cases {
		ref := ImageRefFromString(c.in)
		assert.Equal(t, c.kind, ref.Kind())
	}

	// file:// URIs strip the scheme so the path is directly openable.
	ref := ImageRefFromString("file:///tmp/a.jpg")
	assert.Equal(t, "/tmp/a.jpg", ref.Path())
}

func TestImageRefJSONRoundTrip(t *testing.T) {
	type payload struct {
		Image ImageRef `json:"image"`
	}

	var p payload
	err := json.Unmarshal([]byte(`{"image":"https://objects.test/x"}`), &p)
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Image.IsRemote(), true)
	assert.Equal(t, "https://objects.test/x", p.Image.URL())

	out, err := json.Marshal(p)
	assert.Equal(t, err, nil)
	assert.Equal(t, `{"image":"https://objects.test/x"}`, string(out))
}

func TestEventDraftValidate(t *testing.T) {
	draft := EventDraft{}
	errs := draft.Validate()
	assert.Equal(t, 5, len(errs))

	draft = EventDraft{
		Name:        "Picnic",
		Capacity:    "20",
		Description: "Outdoor",
		Address:     "Park Ave",
		Category:    "Social",
	}
	assert.Equal(t, 0, len(draft.Validate()))

	draft.Address = ""
	errs = draft.Validate()
	assert.Equal(t, 1, len(errs))
	_, ok := errs["address"]
	assert.Equal(t, ok, true)
}

func TestEventFieldsRoundTrip(t *testing.T) {
	draft := EventDraft{
		Name:        "Picnic",
		Capacity:    "20",
		Description: "Outdoor",
		Address:     "Park Ave",
		Category:    "Social",
	}

	fields := draft.Fields("https://objects.test/event_images/1")
	ev := EventFromFields("id-1", fields)
	assert.Equal(t, "id-1", ev.ID)
	assert.Equal(t, "Picnic", ev.Name)
	assert.Equal(t, "https://objects.test/event_images/1", ev.Image)

	// No image stores an explicit null, decoded back to empty.
	fields = draft.Fields("")
	assert.Equal(t, fields["image"], nil)
	assert.Equal(t, "", EventFromFields("id-2", fields).Image)
}

func TestProfileFieldsRoundTrip(t *testing.T) {
	draft := ProfileDraft{Name: "Ada", Age: "36", City: "London", Bio: "hi"}
	fields := draft.Fields("ada@example.com", "")

	prof := ProfileFromFields("uid-1", fields)
	assert.Equal(t, "uid-1", prof.UID)
	assert.Equal(t, "Ada", prof.Name)
	assert.Equal(t, "ada@example.com", prof.Email)
	assert.Equal(t, "", prof.ProfileImage)
}
