package database

const schema = `
CREATE TABLE IF NOT EXISTS payments (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    upi_id VARCHAR(255) NOT NULL,
    transaction_id VARCHAR(128),
    amount INT NOT NULL,
    currency VARCHAR(8) NOT NULL,
    plan VARCHAR(16) NOT NULL,
    screenshot_url VARCHAR(1024) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    admin_note TEXT,
    verified_at TIMESTAMP NULL DEFAULT NULL,
    created_at TIMESTAMP(3) DEFAULT CURRENT_TIMESTAMP(3),
    updated_at TIMESTAMP(3) DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
    INDEX idx_payments_created_at (created_at),
    INDEX idx_payments_email (email)
);
`
