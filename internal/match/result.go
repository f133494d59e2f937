package match

import "github.com/topblame/ekani-crew-ai-server/internal/mbti"

// ResultStatus tags the outcome of a match request or cancellation.
type ResultStatus string

const (
	StatusWaitingResult  ResultStatus = "waiting"
	StatusAlreadyWaiting ResultStatus = "already_waiting"
	StatusMatchedResult  ResultStatus = "matched"
	StatusAlreadyMatched ResultStatus = "already_matched"
	StatusCancelled      ResultStatus = "cancelled"
	StatusCancelFailed   ResultStatus = "fail"
)

// Result is the response shape returned to the requester.
type Result struct {
	Status    ResultStatus `json:"status"`
	Message   string       `json:"message"`
	MyMBTI    mbti.MBTI    `json:"my_mbti,omitempty"`
	WaitCount int          `json:"wait_count,omitempty"`
	RoomID    string       `json:"room_id,omitempty"`
	Partner   *Participant `json:"partner,omitempty"`
	PartnerID string       `json:"partner_id,omitempty"`
}

// CancelResult is the response shape for a cancellation.
type CancelResult struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message"`
}

func waitingResult(m mbti.MBTI, waitCount int) Result {
	return Result{
		Status:    StatusWaitingResult,
		Message:   "registered in the waiting queue",
		MyMBTI:    m,
		WaitCount: waitCount,
	}
}

func alreadyWaitingResult(m mbti.MBTI, waitCount int) Result {
	return Result{
		Status:    StatusAlreadyWaiting,
		Message:   "user is already in the waiting queue",
		MyMBTI:    m,
		WaitCount: waitCount,
	}
}

func matchedResult(m mbti.MBTI, roomID string, partner Participant) Result {
	return Result{
		Status:  StatusMatchedResult,
		Message: "match found",
		MyMBTI:  m,
		RoomID:  roomID,
		Partner: &partner,
	}
}

func alreadyMatchedResult(m mbti.MBTI, roomID, partnerID string) Result {
	return Result{
		Status:    StatusAlreadyMatched,
		Message:   "user already has an active match",
		MyMBTI:    m,
		RoomID:    roomID,
		PartnerID: partnerID,
	}
}
