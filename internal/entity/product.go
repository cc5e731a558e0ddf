package entity

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"` // minor currency units
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url"`
}

/*
Mysql Table

CREATE TABLE products (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description TEXT NOT NULL,
	price BIGINT NOT NULL,
	currency CHAR(3) NOT NULL,
	image_url VARCHAR(1024) NOT NULL
);
*/
