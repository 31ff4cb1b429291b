package adaptive

import "errors"

var (
	// ErrUnknownLearner is returned for a learner ID that was never registered.
	ErrUnknownLearner = errors.New("unknown learner")
	// ErrUnknownContent is returned for a content ID that is not in the catalog.
	ErrUnknownContent = errors.New("unknown content")
	// ErrQuestionIndexOutOfRange is returned when 0 <= index < len(questions) does not hold.
	ErrQuestionIndexOutOfRange = errors.New("question index out of range")
	// ErrOptionIndexOutOfRange is returned when the selected option does not exist.
	ErrOptionIndexOutOfRange = errors.New("option index out of range")
	// ErrInvalidLearnerID is returned when registering an empty learner ID.
	ErrInvalidLearnerID = errors.New("invalid learner id")
	// ErrInvalidProfile is returned when a registration profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")
)
