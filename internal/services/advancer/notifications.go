package advancer

import (
	"github.com/EcoChain/delivery-core/internal/broker/messages"
	"github.com/EcoChain/delivery-core/internal/models"
)

// Тексты уведомлений по (новый статус): одно покупателю, одно продавцу.
func notificationsFor(tx *models.Transaction, newStatus models.TransactionStatus) []messages.NotificationPayload {
	var buyerTitle, buyerMsg, sellerTitle, sellerMsg string

	switch newStatus {
	case models.TransactionStatusInTransit:
		buyerTitle = "Produto coletado"
		buyerMsg = "Seu material foi coletado e está a caminho."
		sellerTitle = "Produto coletado"
		sellerMsg = "O material foi coletado e segue para o comprador."
	case models.TransactionStatusDelivered:
		buyerTitle = "Produto entregue"
		buyerMsg = "Seu material foi entregue. Confirme o recebimento no app."
		sellerTitle = "Produto entregue"
		sellerMsg = "O material foi entregue ao comprador."
	default:
		return nil
	}

	return []messages.NotificationPayload{
		{UserID: tx.BuyerID, Title: buyerTitle, Message: buyerMsg},
		{UserID: tx.SellerID, Title: sellerTitle, Message: sellerMsg},
	}
}
