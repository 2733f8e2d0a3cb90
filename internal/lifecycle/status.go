package lifecycle

// Kind distinguishes reservations (mechanic bookings) from orders (parts purchases).
type Kind string

const (
	KindReservation Kind = "reservation"
	KindOrder       Kind = "order"
)

// Valid reports whether k is a known request kind.
func (k Kind) Valid() bool {
	_, ok := sequences[k]
	return ok
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCompleted  Status = "completed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var sequences = map[Kind][]Status{
	KindReservation: {StatusPending, StatusConfirmed, StatusCompleted},
	KindOrder:       {StatusPending, StatusProcessing, StatusShipped, StatusDelivered},
}

var cancellable = map[Kind]map[Status]struct{}{
	KindReservation: {StatusPending: {}, StatusConfirmed: {}},
	KindOrder:       {StatusPending: {}, StatusProcessing: {}},
}

var stepLabels = map[Kind]map[Status]string{
	KindReservation: {
		StatusPending:   "Réservation envoyée",
		StatusConfirmed: "Réservation confirmée",
		StatusCompleted: "Intervention terminée",
	},
	KindOrder: {
		StatusPending:    "Commande passée",
		StatusProcessing: "Commande en cours de traitement",
		StatusShipped:    "Commande expédiée",
		StatusDelivered:  "Commande livrée",
	},
}

var badges = map[Status]string{
	StatusPending:    "En attente",
	StatusConfirmed:  "Confirmée",
	StatusCompleted:  "Terminée",
	StatusProcessing: "En cours de traitement",
	StatusShipped:    "Expédiée",
	StatusDelivered:  "Livrée",
	StatusCancelled:  "Annulée",
}

// Sequence returns the forward status path of k.
func Sequence(k Kind) []Status {
	return append([]Status(nil), sequences[k]...)
}

// IsTerminal reports whether no transition is allowed out of s for k.
func IsTerminal(k Kind, s Status) bool {
	if s == StatusCancelled {
		return true
	}
	seq := sequences[k]
	return len(seq) > 0 && seq[len(seq)-1] == s
}

// CanCancel reports whether a request of kind k may be cancelled from s.
func CanCancel(k Kind, s Status) bool {
	_, ok := cancellable[k][s]
	return ok
}

// Next returns the status following s in the forward path of k.
func Next(k Kind, s Status) (Status, bool) {
	seq := sequences[k]
	for i, st := range seq {
		if st == s && i+1 < len(seq) {
			return seq[i+1], true
		}
	}
	return "", false
}

// ValidStatus reports whether s belongs to the vocabulary of k.
func ValidStatus(k Kind, s Status) bool {
	if s == StatusCancelled {
		return k.Valid()
	}
	return position(k, s) >= 0
}

// Badge returns the display label of a status.
func Badge(s Status) string {
	if b, ok := badges[s]; ok {
		return b
	}
	return string(s)
}

func position(k Kind, s Status) int {
	for i, st := range sequences[k] {
		if st == s {
			return i
		}
	}
	return -1
}
