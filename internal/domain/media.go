package domain

// MediaState holds the independent media flags of a live connection.
// It is never persisted; it dies with the connection.
type MediaState struct {
	Video  bool `json:"video"`
	Audio  bool `json:"audio"`
	Screen bool `json:"screen"`
}

// MediaStateUpdate is a partial update: nil means "keep prior value".
type MediaStateUpdate struct {
	Video  *bool `json:"video,omitempty"`
	Audio  *bool `json:"audio,omitempty"`
	Screen *bool `json:"screen,omitempty"`
}

// Apply merges only the provided flags into s.
func (u MediaStateUpdate) Apply(s MediaState) MediaState {
	if u.Video != nil {
		s.Video = *u.Video
	}
	if u.Audio != nil {
		s.Audio = *u.Audio
	}
	if u.Screen != nil {
		s.Screen = *u.Screen
	}
	return s
}
