package models

// Event is a social event document from the "events" collection. Field names
// mirror the document schema so JSON round-trips match what the store holds.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"eventName"`
	Capacity    string `json:"capacity"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
}

// EventDraft carries user input for a create or update. The image reference
// may be local (not yet uploaded), remote, or absent.
type EventDraft struct {
	Name        string   `json:"eventName"`
	Capacity    string   `json:"capacity"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Category    string   `json:"category"`
	Image       ImageRef `json:"image"`
}

func (d *EventDraft) Validate() map[string]string {
	errors := make(map[string]string)

	if d.Name == "" {
		errors["eventName"] = "Event name is required"
	}
	if d.Capacity == "" {
		errors["capacity"] = "Capacity is required"
	}
	if d.Description == "" {
		errors["description"] = "Description is required"
	}
	if d.Address == "" {
		errors["address"] = "Address is required"
	}
	if d.Category == "" {
		errors["category"] = "Category is required"
	}

	return errors
}

// Fields flattens the draft into a full-replace document payload. imageURL
// is the resolved remote URL; an empty string stores a null image.
func (d *EventDraft) Fields(imageURL string) map[string]interface{} {
	fields := map[string]interface{}{
		"eventName":   d.Name,
		"capacity":    d.Capacity,
		"description": d.Description,
		"address":     d.Address,
		"category":    d.Category,
	}
	if imageURL != "" {
		fields["image"] = imageURL
	} else {
		fields["image"] = nil
	}
	return fields
}

// EventFromFields decodes a stored document into an Event. Missing or
// null fields decode to empty strings.
func EventFromFields(id string, fields map[string]interface{}) Event {
	return Event{
		ID:          id,
		Name:        stringField(fields, "eventName"),
		Capacity:    stringField(fields, "capacity"),
		Description: stringField(fields, "description"),
		Address:     stringField(fields, "address"),
		Category:    stringField(fields, "category"),
		Image:       stringField(fields, "image"),
	}
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}
