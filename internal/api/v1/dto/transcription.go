package dto

// TranscribeForm holds the optional multipart fields of POST /transcribe.
// The audio itself arrives in the "file" part.
type TranscribeForm struct {
	Provider string `form:"provider" binding:"omitempty,max=64"`
	Language string `form:"language" binding:"omitempty,max=16"`
}

// TranscriptionResponse is the success body of POST /transcribe. The
// transcript is always present, even when empty.
type TranscriptionResponse struct {
	Transcript string `json:"transcript" example:"Hello world"`
}
