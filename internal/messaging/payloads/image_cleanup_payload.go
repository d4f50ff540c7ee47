package payloads

// ImageCleanupPayload - задача на удаление изображения удалённого места.
type ImageCleanupPayload struct {
	Image   string `json:"image"`
	PlaceID string `json:"place_id"`
	Reason  string `json:"reason"`
}
