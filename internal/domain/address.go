package domain

// Address — value object адреса доставки. Фиксируется при создании заказа
// и дальше не меняется.
type Address struct {
	Street  string
	City    string
	State   string
	Country string
	ZipCode string
}
