package api

// Profile is the public view of a user.
type Profile struct {
	ID               string       `json:"id"`
	Name             *string      `json:"name,omitempty"`
	Age              *int         `json:"age,omitempty"`
	Gender           *string      `json:"gender,omitempty"`
	Bio              *string      `json:"bio,omitempty"`
	City             *string      `json:"city,omitempty"`
	Country          *string      `json:"country,omitempty"`
	ProfilePhoto     *string      `json:"profilePhoto,omitempty"`
	AdditionalPhotos []string     `json:"additionalPhotos,omitempty"`
	Preferences      *Preferences `json:"preferences,omitempty"`
}

type Preferences struct {
	MinAge             int    `json:"minAge"`
	MaxAge             int    `json:"maxAge"`
	InterestedInGender string `json:"interestedInGender"`
	MaxDistance        int    `json:"maxDistance,omitempty"`
}

type Swipe struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
	Action       string `json:"action"`
	CreatedAt    int64  `json:"createdAt"`
}

type Match struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	TargetUserID string   `json:"targetUserId"`
	CreatedAt    int64    `json:"createdAt"`
	Target       *Profile `json:"target,omitempty"`
}

type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	MatchID   string `json:"matchId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// --- ExploreService ---

type RecordSwipeRequest struct {
	TargetUserID string `json:"targetUserId"`
	// Action is LIKE or DISLIKE (case-insensitive).
	Action string `json:"action"`
}

type RecordSwipeResponse struct {
	IsMatch bool   `json:"isMatch"`
	MatchID string `json:"matchId,omitempty"`
}

type GetSwipeHistoryRequest struct{}

type GetSwipeHistoryResponse struct {
	Swipes []Swipe `json:"swipes"`
}

type GetMatchRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type GetMatchResponse struct {
	Match Match `json:"match"`
}

type GetMatchHistoryRequest struct{}

type GetMatchHistoryResponse struct {
	Matches []Match `json:"matches"`
}

type FindCandidatesRequest struct {
	Limit     int32  `json:"limit,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type FindCandidatesResponse struct {
	Candidates []Profile `json:"candidates"`
	// NextPageToken is empty when the page was not full.
	NextPageToken string `json:"nextPageToken,omitempty"`
}

type CountLikedYouRequest struct{}

type CountLikedYouResponse struct {
	Count uint64 `json:"count"`
}

type GetProfileRequest struct {
	// UserID defaults to the caller.
	UserID string `json:"userId,omitempty"`
}

type UpdateProfileRequest struct {
	Name             *string      `json:"name,omitempty"`
	Age              *int         `json:"age,omitempty"`
	Gender           *string      `json:"gender,omitempty"`
	Bio              *string      `json:"bio,omitempty"`
	City             *string      `json:"city,omitempty"`
	Country          *string      `json:"country,omitempty"`
	ProfilePhoto     *string      `json:"profilePhoto,omitempty"`
	AdditionalPhotos *[]string    `json:"additionalPhotos,omitempty"`
	Preferences      *Preferences `json:"preferences,omitempty"`
}

type ProfileResponse struct {
	Profile Profile `json:"profile"`
}

type ListMessagesRequest struct {
	MatchID string `json:"matchId"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// --- ChatService ---

// ClientEvent carries exactly one of its fields.
type ClientEvent struct {
	JoinChat    *JoinChat    `json:"joinChat,omitempty"`
	SendMessage *SendMessage `json:"sendMessage,omitempty"`
}

type JoinChat struct {
	OtherUserID string `json:"otherUserId"`
}

type SendMessage struct {
	MatchID string `json:"matchId"`
	Content string `json:"content"`
}

// ServerEvent carries exactly one of its fields.
type ServerEvent struct {
	Joined         *Joined         `json:"joined,omitempty"`
	ReceiveMessage *ReceiveMessage `json:"receiveMessage,omitempty"`
	Error          *ErrorEvent     `json:"error,omitempty"`
}

type Joined struct {
	RoomID string `json:"roomId"`
}

type ReceiveMessage struct {
	SenderID  string `json:"senderId"`
	MatchID   string `json:"matchId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorEvent reports a failed client event to the connection that sent it.
type ErrorEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
