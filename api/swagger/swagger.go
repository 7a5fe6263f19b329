package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA SIS API",
        "description": "Student information system core: fee ledger, exam marks and results",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Fees", "description": "Fee assignment and ledgers"},
        {"name": "Payments", "description": "Payment collection, discounts and receipts"},
        {"name": "Exams", "description": "Exam and subject slot management"},
        {"name": "Marks", "description": "Marks entry and statistics"},
        {"name": "Results", "description": "Result computation, merit lists and publishing"},
        {"name": "Grading", "description": "Grading system configuration"},
        {"name": "Students", "description": "Student roster management"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/fees": {
            "get": {
                "tags": ["Fees"],
                "summary": "List student fees",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "sessionId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Fees"],
                "summary": "Assign a fee structure to a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignFeeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}/ledger": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fee ledger with payment and discount history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}/reconcile": {
            "post": {
                "tags": ["Fees"],
                "summary": "Rebuild ledger aggregates from the event log",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/collections.csv": {
            "get": {
                "tags": ["Fees"],
                "summary": "Export fee collections of a date range as CSV",
                "parameters": [
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV payload"}
                }
            }
        },
        "/fees/{id}/receipts/{receipt}": {
            "get": {
                "tags": ["Payments"],
                "summary": "Download a payment receipt as PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "receipt", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF payload"}
                }
            }
        },
        "/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Collect a payment against a student fee",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProcessPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/discounts": {
            "post": {
                "tags": ["Payments"],
                "summary": "Apply an approved discount or waiver",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyDiscountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams": {
            "post": {
                "tags": ["Exams"],
                "summary": "Register a new exam",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExamRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/subjects": {
            "get": {
                "tags": ["Exams"],
                "summary": "List an exam's subject slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Attach a subject slot to an exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddExamSubjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/marks": {
            "put": {
                "tags": ["Marks"],
                "summary": "Record one student's marks for an exam subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordMarksRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/marks/bulk": {
            "put": {
                "tags": ["Marks"],
                "summary": "Record a roster of marks atomically",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkMarksRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exam-subjects/{id}/statistics": {
            "get": {
                "tags": ["Marks"],
                "summary": "Aggregate statistics of one exam subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/results/compute": {
            "post": {
                "tags": ["Results"],
                "summary": "Compute results for every student with complete marks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/results/{studentId}/compute": {
            "post": {
                "tags": ["Results"],
                "summary": "Compute one student's exam result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Marks incomplete", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/merit-list": {
            "get": {
                "tags": ["Results"],
                "summary": "Ranked merit list of one exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{id}/results/publish": {
            "post": {
                "tags": ["Results"],
                "summary": "Publish all draft results of an exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No drafts to publish", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grading-systems": {
            "get": {
                "tags": ["Grading"],
                "summary": "List grading systems",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grading"],
                "summary": "Create a grading system with its bands",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGradingSystemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AssignFeeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "fee_structure_id": {"type": "string"},
                "session_id": {"type": "string"},
                "total_amount": {"type": "number"},
                "due_date": {"type": "string"}
            },
            "required": ["student_id", "fee_structure_id", "session_id", "total_amount", "due_date"]
        },
        "ProcessPaymentRequest": {
            "type": "object",
            "properties": {
                "student_fee_id": {"type": "string"},
                "amount": {"type": "number"},
                "payment_method": {"type": "string"},
                "discount_amount": {"type": "number"},
                "discount_reason": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["student_fee_id", "amount", "payment_method"]
        },
        "ApplyDiscountRequest": {
            "type": "object",
            "properties": {
                "student_fee_id": {"type": "string"},
                "type": {"type": "string", "enum": ["DISCOUNT", "WAIVER"]},
                "amount": {"type": "number"},
                "percentage": {"type": "number"},
                "reason": {"type": "string"}
            },
            "required": ["student_fee_id", "type", "reason"]
        },
        "CreateExamRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "class_id": {"type": "string"},
                "section": {"type": "string"},
                "session_id": {"type": "string"},
                "start_date": {"type": "string"}
            },
            "required": ["name", "class_id", "section", "session_id", "start_date"]
        },
        "AddExamSubjectRequest": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "subject_name": {"type": "string"},
                "total_marks": {"type": "number"},
                "passing_marks": {"type": "number"},
                "exam_date": {"type": "string"}
            },
            "required": ["subject_id", "subject_name", "total_marks", "exam_date"]
        },
        "RecordMarksRequest": {
            "type": "object",
            "properties": {
                "exam_subject_id": {"type": "string"},
                "student_id": {"type": "string"},
                "marks_obtained": {"type": "number"},
                "is_absent": {"type": "boolean"},
                "remarks": {"type": "string"}
            },
            "required": ["exam_subject_id", "student_id"]
        },
        "BulkMarksRequest": {
            "type": "object",
            "properties": {
                "exam_subject_id": {"type": "string"},
                "marks": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["exam_subject_id", "marks"]
        },
        "CreateGradingSystemRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "active": {"type": "boolean"},
                "bands": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["name", "bands"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "admission_no": {"type": "string"},
                "full_name": {"type": "string"},
                "gender": {"type": "string"},
                "birth_date": {"type": "string"},
                "class_id": {"type": "string"},
                "section": {"type": "string"},
                "guardian_name": {"type": "string"},
                "guardian_phone": {"type": "string"}
            },
            "required": ["admission_no", "full_name", "gender", "birth_date", "class_id", "section"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
