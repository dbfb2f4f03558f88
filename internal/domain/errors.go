package domain

import "fmt"

// Таксономия ошибок: Transport и Parse гасятся на границе резолвера
// (переход к следующему источнику), наружу выходят только NotFound и Delivery.

// TransportError - сеть/не-2xx статус при обращении к источнику
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error from %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError - тело ответа не совпало с ожидаемой формой
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error from %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError - все источники исчерпаны, данных нет
type NotFoundError struct {
	Ticker string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find data for %s", e.Ticker)
}

// DeliveryError - сток уведомлений сообщил о неудаче
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
