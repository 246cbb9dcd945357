// Package docs содержит OpenAPI-описание HTTP API сервиса.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/search": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Поиск похожих товаров по изображению",
                "parameters": [
                    {"type": "file", "name": "image", "in": "formData", "required": true, "description": "Изображение запроса"},
                    {"type": "integer", "name": "limit", "in": "formData", "description": "Число результатов (1..50, по умолчанию 5)"},
                    {"type": "number", "name": "min_similarity", "in": "formData", "description": "Порог близости (0..1, по умолчанию 0)"}
                ],
                "responses": {
                    "200": {"description": "Выдача поиска", "schema": {"$ref": "#/definitions/http.SearchResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Сервис векторизации недоступен", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/search/vector": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Поиск похожих товаров по эмбеддингу",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.SearchVectorRequest"}}
                ],
                "responses": {
                    "200": {"description": "Выдача поиска", "schema": {"$ref": "#/definitions/http.SearchResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/catalog/populate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Пакетная загрузка каталога",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.PopulateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Отчёт загрузки", "schema": {"$ref": "#/definitions/http.PopulateResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/catalog/images": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Загрузка изображений товаров",
                "parameters": [
                    {"type": "file", "name": "images", "in": "formData", "required": true, "description": "Изображения товаров"}
                ],
                "responses": {
                    "200": {"description": "Ключи изображений", "schema": {"$ref": "#/definitions/http.UploadImagesResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "415": {"description": "Неподдерживаемый тип файла", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/catalog": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Очистка каталога",
                "responses": {
                    "200": {"description": "Каталог очищен"}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Карточка товара",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true, "description": "ID товара"}
                ],
                "responses": {
                    "200": {"description": "Карточка товара", "schema": {"$ref": "#/definitions/http.ProductResponse"}},
                    "404": {"description": "Товар не найден", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Статистика каталога",
                "responses": {
                    "200": {"description": "Статистика", "schema": {"$ref": "#/definitions/http.StatsResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Проверка работоспособности сервиса",
                "responses": {
                    "200": {"description": "Сервис работает", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "Сервис неработоспособен", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "http.SearchVectorRequest": {
            "type": "object",
            "properties": {
                "embedding": {"type": "array", "items": {"type": "number"}},
                "limit": {"type": "integer"},
                "min_similarity": {"type": "number"}
            }
        },
        "http.SearchResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/http.SearchResultItem"}},
                "count": {"type": "integer"},
                "limit": {"type": "integer"},
                "min_similarity": {"type": "number"}
            }
        },
        "http.SearchResultItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "brand": {"type": "string"},
                "price": {"type": "integer"},
                "category": {"type": "string"},
                "product_url": {"type": "string"},
                "image_url": {"type": "string"},
                "similarity": {"type": "number"},
                "rank": {"type": "integer"}
            }
        },
        "http.PopulateRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.PopulateItemRequest"}},
                "upsert": {"type": "boolean"}
            }
        },
        "http.PopulateItemRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "brand": {"type": "string"},
                "price": {"type": "integer"},
                "category": {"type": "string"},
                "product_url": {"type": "string"},
                "image_key": {"type": "string"},
                "embedding": {"type": "array", "items": {"type": "number"}}
            }
        },
        "http.PopulateResponse": {
            "type": "object",
            "properties": {
                "inserted": {"type": "integer"},
                "skipped": {"type": "integer"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/http.PopulateItemError"}}
            }
        },
        "http.PopulateItemError": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "http.ProductResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "brand": {"type": "string"},
                "price": {"type": "integer"},
                "category": {"type": "string"},
                "product_url": {"type": "string"},
                "image_url": {"type": "string"}
            }
        },
        "http.UploadImagesResponse": {
            "type": "object",
            "properties": {
                "image_keys": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.StatsResponse": {
            "type": "object",
            "properties": {
                "product_count": {"type": "integer"},
                "dimension": {"type": "integer"},
                "model_name": {"type": "string"},
                "model_loaded": {"type": "boolean"}
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "product_count": {"type": "integer"},
                "model_name": {"type": "string"},
                "model_loaded": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo описывает параметры документации API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Similarity Backend API",
	Description:      "Поиск похожих товаров по изображениям",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
