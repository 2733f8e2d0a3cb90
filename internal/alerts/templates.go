package alerts

import (
	"fmt"
	"strings"
)

const brand = "Mecano Motor's"

// message is the rendered subject and body of a task.
type message struct {
	Subject string
	Body    string
}

// render builds the French copy of a notification. other is the display name
// of the counterpart (mechanic, vendor, client or message sender), may be empty.
func render(taskType string, p Payload, to Recipient, other string) (message, error) {
	d := p.Data
	if other == "" {
		other = d["sender"]
	}
	greeting := "Bonjour"
	if to.Name != "" {
		greeting = "Bonjour " + to.Name
	}

	switch taskType {
	case TaskWelcome:
		return message{
			Subject: "Bienvenue sur " + brand,
			Body:    fmt.Sprintf("%s,\n\nMerci de rejoindre %s.\n\nOuvrir l'application : %s", greeting, brand, d["url"]),
		}, nil
	case TaskPasswordReset:
		return message{
			Subject: "Réinitialisation du mot de passe",
			Body: fmt.Sprintf("%s,\n\nPour choisir un nouveau mot de passe, ouvrez le lien suivant :\n%s\n\nCe lien expire dans %s minutes. Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.",
				greeting, d["url"], d["minutes"]),
		}, nil
	case TaskReservationCreated:
		return message{
			Subject: "Nouvelle demande de réservation",
			Body: fmt.Sprintf("%s,\n\n%s souhaite réserver « %s » le %s à %s.",
				greeting, orDefault(other, "Un client"), d["service"], d["date"], d["time"]),
		}, nil
	case TaskReservationConfirmed:
		return message{
			Subject: "Réservation confirmée - " + brand,
			Body: fmt.Sprintf("%s,\n\nVotre réservation a été confirmée avec %s.\nDate : %s\nHeure : %s\n\nMerci d'utiliser %s !",
				greeting, orDefault(other, "votre mécanicien"), d["date"], d["time"], brand),
		}, nil
	case TaskOrderPlaced:
		return message{
			Subject: "Nouvelle commande",
			Body:    fmt.Sprintf("%s,\n\nUne nouvelle commande %s de %s FCFA vous attend.", greeting, p.Reference, d["total"]),
		}, nil
	case TaskOrderShipped:
		body := fmt.Sprintf("%s,\n\nVotre commande %s a été expédiée.", greeting, p.Reference)
		if t := d["tracking"]; t != "" {
			body += "\nNuméro de suivi : " + t
		}
		return message{Subject: "Commande expédiée - " + brand, Body: body}, nil
	case TaskRequestCancelled:
		what := "La commande"
		if d["kind"] == "reservation" {
			what = "La réservation"
		}
		body := fmt.Sprintf("%s,\n\n%s %s a été annulée.", greeting, what, p.Reference)
		if r := strings.TrimSpace(d["reason"]); r != "" {
			body += "\nMotif : " + r
		}
		return message{Subject: what + " a été annulée", Body: body}, nil
	case TaskMessageNew:
		return message{
			Subject: "Nouveau message - " + brand,
			Body:    fmt.Sprintf("%s,\n\nVous avez reçu un nouveau message de %s.", greeting, orDefault(other, "un utilisateur")),
		}, nil
	}
	return message{}, fmt.Errorf("no template for %q", taskType)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
