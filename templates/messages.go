// Package templates holds every customer-facing message. All chat output is
// Portuguese; raw error detail never reaches these strings.
package templates

import (
	"fmt"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"
)

// Interactive button ids referenced by the conversation state machine.
const (
	ButtonConfirmRide       = "confirm_ride"
	ButtonCancelRide        = "cancel_ride"
	ButtonChangeCategory    = "change_category"
	ButtonChangeOrigin      = "change_origin"
	ButtonChangeDestination = "change_destination"
	ButtonRetryRide         = "retry_ride"
)

// Greeting opens the booking dialogue.
func Greeting(name string) string {
	if name != "" {
		return fmt.Sprintf("Olá, %s! 👋 Sou o assistente de táxi. Vou te ajudar a pedir uma corrida.", name)
	}
	return "Olá! 👋 Sou o assistente de táxi. Vou te ajudar a pedir uma corrida."
}

// RequestLocation asks the customer to share GPS position.
func RequestLocation() string {
	return "Para começar, compartilhe sua localização atual pelo anexo 📎 > Localização."
}

// LocationOnly re-prompts when the customer types instead of sharing.
func LocationOnly() string {
	return "Preciso da sua localização pelo botão de compartilhar 📍 para encontrar você com precisão."
}

// RequestOriginText falls back to typed origin entry.
func RequestOriginText() string {
	return "Sem problemas! Me diga por escrito o endereço de onde você está (rua e número)."
}

// ConfirmOrigin asks the customer to confirm a typed origin.
func ConfirmOrigin(address string) string {
	return fmt.Sprintf("Seu ponto de partida é *%s*?", address)
}

// OriginSet acknowledges the detected origin and asks for the destination.
func OriginSet(address string) string {
	return fmt.Sprintf("Ótimo! Você está em *%s*. Agora me diga: para onde vamos?", address)
}

// OriginConfirmed acknowledges the origin when the destination is already
// known, so the dialogue can jump straight to the vehicle choice.
func OriginConfirmed(address string) string {
	return fmt.Sprintf("Ótimo! Você está em *%s*.", address)
}

// UnsupportedMedia rejects message types the bot cannot interpret.
func UnsupportedMedia() string {
	return "Ainda não consigo entender áudios ou mídias. 🙏 Pode escrever sua mensagem?"
}

// RequestDestination asks for the drop-off point.
func RequestDestination() string {
	return "Para onde você quer ir? Pode digitar o endereço ou compartilhar a localização."
}

// DestinationTooShort rejects an address below the minimum length.
func DestinationTooShort() string {
	return "Esse endereço ficou muito curto. Pode me mandar o endereço completo, com rua e número?"
}

// CategoryPrompt offers the vehicle classes.
func CategoryPrompt() string {
	return "Qual tipo de veículo você prefere?"
}

// CategoryButtons lists the vehicle classes as interactive choices.
func CategoryButtons() []repository.ChannelButton {
	buttons := make([]repository.ChannelButton, 0, len(entity.AllCategories()))
	for _, cat := range entity.AllCategories() {
		buttons = append(buttons, repository.ChannelButton{ID: cat, Title: entity.CategoryLabel(cat)})
	}
	return buttons
}

// Summary shows the booking draft for confirmation.
func Summary(draft *entity.Context) string {
	return fmt.Sprintf(
		"Confira sua corrida:\n\n📍 Origem: %s\n🏁 Destino: %s\n🚗 Veículo: %s\n💰 Valor estimado: R$ %.2f\n📏 Distância: %.1f km (~%.0f min)\n\nPosso confirmar?",
		draft.Origin.Address,
		draft.Destination.Address,
		entity.CategoryLabel(draft.Category),
		draft.EstimatedPrice,
		draft.EstimatedDistanceKm,
		draft.EstimatedDurationMin,
	)
}

// ConfirmationButtons are the choices shown with the summary.
func ConfirmationButtons() []repository.ChannelButton {
	return []repository.ChannelButton{
		{ID: ButtonConfirmRide, Title: "Confirmar ✅"},
		{ID: ButtonChangeCategory, Title: "Trocar veículo"},
		{ID: ButtonCancelRide, Title: "Cancelar ❌"},
	}
}

// RideCreated confirms dispatch with the short booking code.
func RideCreated(code string) string {
	return fmt.Sprintf("Corrida solicitada! 🚕 Código: *%s*. Estou procurando um motorista para você.", code)
}

// DriverAssigned announces the matched driver.
func DriverAssigned(driver *entity.Driver, etaMin int) string {
	msg := "Motorista encontrado! 🎉"
	if driver != nil {
		msg += fmt.Sprintf("\n\n👤 %s", driver.Name)
		if driver.VehicleModel != "" {
			msg += fmt.Sprintf("\n🚗 %s — placa %s", driver.VehicleModel, driver.VehiclePlate)
		}
		if driver.Rating > 0 {
			msg += fmt.Sprintf("\n⭐ %.1f", driver.Rating)
		}
	}
	if etaMin > 0 {
		msg += fmt.Sprintf("\n\nChega em aproximadamente %d min.", etaMin)
	}
	return msg
}

// NoDriver reports that no driver took the ride.
func NoDriver() string {
	return "Ainda não encontrei um motorista disponível. 😔 Quer tentar de novo?"
}

// RetryButtons offer the next action after a failure.
func RetryButtons() []repository.ChannelButton {
	return []repository.ChannelButton{
		{ID: ButtonRetryRide, Title: "Tentar novamente"},
		{ID: ButtonCancelRide, Title: "Cancelar"},
	}
}

// RideCompleted closes the trip with the final price.
func RideCompleted(price float64) string {
	return fmt.Sprintf("Corrida finalizada! 🏁 Valor: R$ %.2f. Obrigado por viajar com a gente!", price)
}

// RideCancelled notifies a cancellation pushed by the provider.
func RideCancelled() string {
	return "Sua corrida foi cancelada. Se quiser pedir outra, é só mandar uma mensagem."
}

// CancelConfirmed acknowledges a cancellation asked by the customer.
func CancelConfirmed() string {
	return "Tudo bem, corrida cancelada. ✅ Quando precisar, é só chamar!"
}

// NothingToCancel answers a cancel intent with no active ride.
func NothingToCancel() string {
	return "Você não tem nenhuma corrida em andamento. Se quiser pedir uma, é só mandar uma mensagem."
}

// StatusLine describes the current ride status on demand.
func StatusLine(status string, driver *entity.Driver) string {
	switch status {
	case entity.RideStatusDistributing, entity.RideStatusAwaitingAccept, entity.RideStatusPending:
		return "Ainda estou procurando um motorista para você. 🔍"
	case entity.RideStatusAccepted, entity.RideStatusDriverArriving:
		if driver != nil && driver.Name != "" {
			return fmt.Sprintf("%s está a caminho! 🚗", driver.Name)
		}
		return "Seu motorista está a caminho! 🚗"
	case entity.RideStatusDriverArrived:
		return "Seu motorista chegou! Ele está te esperando. 📍"
	case entity.RideStatusInProgress:
		return "Sua corrida está em andamento. Boa viagem! 🛣️"
	case entity.RideStatusAwaitingPayment:
		return "Corrida encerrada, aguardando pagamento."
	default:
		return "Sua corrida está sendo processada."
	}
}

// Apology is the generic non-technical failure message.
func Apology() string {
	return "Desculpe, tive um problema aqui. 😔 Pode tentar de novo em instantes?"
}

// CreateFailed pairs the apology with the retry choice after dispatch failure.
func CreateFailed() string {
	return "Não consegui solicitar sua corrida agora. 😔 Quer tentar de novo?"
}
