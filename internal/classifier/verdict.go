package classifier

const (
	MessageApproved = "You got approved!"
	MessageDenied   = "You did not get approved."

	TextApproved    = "approved"
	TextNotApproved = "not approved"
)

// Verdict is the presentable outcome of one prediction.
type Verdict struct {
	Label    int    `json:"label"`
	Approved bool   `json:"approved"`
	Text     string `json:"verdict"`
	Message  string `json:"message"`
}

// NewVerdict maps 1 to approved and 0 to denied.
func NewVerdict(label int) (Verdict, error) {
	l, err := checkLabel(int64(label))
	if err != nil {
		return Verdict{}, err
	}
	if l == 1 {
		return Verdict{Label: 1, Approved: true, Text: TextApproved, Message: MessageApproved}, nil
	}
	return Verdict{Label: 0, Approved: false, Text: TextNotApproved, Message: MessageDenied}, nil
}

func (v Verdict) String() string { return v.Text }
