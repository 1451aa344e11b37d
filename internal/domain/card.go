package domain

import "time"

// CardSnapshot — снимок платёжной карты на момент оформления заказа.
// Хранится в заказе для аудита, даже если способ оплаты позже изменится у покупателя.
type CardSnapshot struct {
	CardTypeID     int
	CardNumber     string
	SecurityNumber string
	HolderName     string
	Expiration     time.Time
}

// Справочник поддерживаемых типов карт.
const (
	CardTypeAmex       = 1
	CardTypeVisa       = 2
	CardTypeMasterCard = 3
)

// SupportedCardTypes возвращает эталонный справочник типов карт в порядке id.
func SupportedCardTypes() []CardType {
	return []CardType{
		{ID: CardTypeAmex, Name: "Amex"},
		{ID: CardTypeVisa, Name: "Visa"},
		{ID: CardTypeMasterCard, Name: "MasterCard"},
	}
}
