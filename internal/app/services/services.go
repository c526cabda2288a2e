package services

// Services defined in this package:
// - AuthService: account registration and login
// - PromotionService: application intake and the approval workflow
// - ResolutionService: linking accounts to student records
// - PaymentService: payment intents and tuition ledger reconciliation
