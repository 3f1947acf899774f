package services

import "log"

// SMSService is a delivery stub. SMS transport is not implemented; codes
// requested over the sms channel are logged and considered dispatched.
type SMSService struct{}

// NewSMSService constructs the stub.
func NewSMSService() *SMSService {
	return &SMSService{}
}

// SendOTP logs the code instead of delivering it.
func (s *SMSService) SendOTP(phone, code, purpose string) error {
	log.Printf("[sms stub] OTP for %s (%s): %s", phone, purpose, code)
	return nil
}
