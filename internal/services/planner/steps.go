package planner

import "github.com/EcoChain/delivery-core/internal/models"

// Фиксированные последовательности шагов по способу доставки.
// Порядок и id менять нельзя — трекинг на фронте завязан на них.

func localPickupSteps() []models.DeliveryStep {
	return []models.DeliveryStep{
		{ID: "preparation", Title: "Preparação", Description: "O vendedor está separando o material", EstimatedTime: "1-2 horas", Status: models.StepStatusPending, Icon: "package"},
		{ID: "ready_for_pickup", Title: "Pronto para retirada", Description: "Material disponível no endereço do vendedor", EstimatedTime: "Imediato", Status: models.StepStatusPending, Icon: "map-pin"},
	}
}

func expressDeliverySteps() []models.DeliveryStep {
	return []models.DeliveryStep{
		{ID: "preparation", Title: "Preparação", Description: "O vendedor está separando o material", EstimatedTime: "1-2 horas", Status: models.StepStatusPending, Icon: "package"},
		{ID: "pickup", Title: "Coleta", Description: "Entregador a caminho do vendedor", EstimatedTime: "30-60 min", Status: models.StepStatusPending, Icon: "truck"},
		{ID: "in_transit", Title: "Em trânsito", Description: "Material a caminho do destino", EstimatedTime: "2-4 horas", Status: models.StepStatusPending, Icon: "navigation"},
		{ID: "delivered", Title: "Entregue", Description: "Material entregue ao comprador", EstimatedTime: "", Status: models.StepStatusPending, Icon: "check-circle"},
	}
}

func carrierShippingSteps() []models.DeliveryStep {
	return []models.DeliveryStep{
		{ID: "preparation", Title: "Preparação", Description: "O vendedor está separando o material", EstimatedTime: "4-8 horas", Status: models.StepStatusPending, Icon: "package"},
		{ID: "collection", Title: "Coleta", Description: "Transportadora coletou o material", EstimatedTime: "1 dia", Status: models.StepStatusPending, Icon: "truck"},
		{ID: "sorting_center", Title: "Centro de triagem", Description: "Material no centro de distribuição", EstimatedTime: "1 dia", Status: models.StepStatusPending, Icon: "warehouse"},
		{ID: "in_transit", Title: "Em trânsito", Description: "Material a caminho da sua região", EstimatedTime: "1-2 dias", Status: models.StepStatusPending, Icon: "navigation"},
		{ID: "out_for_delivery", Title: "Saiu para entrega", Description: "Material saiu para o endereço final", EstimatedTime: "Horas", Status: models.StepStatusPending, Icon: "truck"},
		{ID: "delivered", Title: "Entregue", Description: "Material entregue ao comprador", EstimatedTime: "", Status: models.StepStatusPending, Icon: "check-circle"},
	}
}

func stepsForMethod(method models.DeliveryMethod) []models.DeliveryStep {
	switch method {
	case models.DeliveryMethodLocalPickup:
		return localPickupSteps()
	case models.DeliveryMethodExpressDelivery:
		return expressDeliverySteps()
	case models.DeliveryMethodCarrierShipping:
		return carrierShippingSteps()
	default:
		return nil
	}
}

// activeStepID maps an externally observed transaction status to the step
// that should render as "active". Empty string = nothing started yet.
func activeStepID(status models.TransactionStatus) string {
	switch status {
	case models.TransactionStatusConfirmed:
		return "preparation"
	case models.TransactionStatusInTransit:
		return "in_transit"
	default:
		return ""
	}
}

// StepsForStatus projects a transaction status onto the method's fixed step
// list: steps before the active one are completed, the active one is active,
// the rest stay pending. Delivered marks everything completed.
func StepsForStatus(method models.DeliveryMethod, status models.TransactionStatus) []models.DeliveryStep {
	steps := stepsForMethod(method)
	if steps == nil {
		return nil
	}

	if status == models.TransactionStatusDelivered {
		for i := range steps {
			steps[i].Status = models.StepStatusCompleted
		}
		return steps
	}

	active := activeStepID(status)
	if active == "" {
		return steps
	}

	idx := -1
	for i, st := range steps {
		if st.ID == active {
			idx = i
			break
		}
	}
	if idx < 0 {
		return steps
	}

	for i := 0; i < idx; i++ {
		steps[i].Status = models.StepStatusCompleted
	}
	steps[idx].Status = models.StepStatusActive
	return steps
}
