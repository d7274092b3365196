package pipeline

import "fmt"

// FieldType declares how a canonical field's raw cell value is normalized.
type FieldType int

const (
	// TypeString keeps the trimmed text verbatim (identifiers, CNPJs).
	TypeString FieldType = iota
	// TypeText is sanitized free text (trimmed, title-cased).
	TypeText
	TypeCurrency
	TypePercentage
	TypeDate
	TypeBoolean
	TypeInteger
)

// KeyField is the mandatory natural business key of a proposta record.
const KeyField = "nfid"

// OperationDateField orders duplicate rows during deduplication.
const OperationDateField = "data_operacao"

// AdValoremPercentLabel is the upstream header for the ad valorem rate. The
// sheet labels it with "&" instead of "%", an upstream typo we must match
// exactly. Update this constant if the sheet header is ever corrected.
const AdValoremPercentLabel = "Ad Valorem &"

// columnMapping renames spreadsheet headers (accent- and case-sensitive) to
// canonical field names. Headers absent from this table are dropped.
var columnMapping = map[string]string{
	// Proposta
	"Numero da Proposta":           "numero_proposta",
	"Status da Proposta":           "status_proposta",
	"Data da operação":             "data_operacao",
	"Data do Aceite da Proposta":   "data_aceite_proposta",

	// Grupo econômico e comprador
	"Grupo Econômico":              "grupo_economico",
	"Razão Social Comprador":       "razao_social_comprador",
	"CNPJ do Comprador":            "cnpj_comprador",
	"Status comprador":             "status_comprador",

	// Nota fiscal e duplicata
	"NFID":                         "nfid",
	"Nº da Nota Fiscal":            "numero_nota_fiscal",
	"Tipo da nota":                 "tipo_nota",
	"Nº da Duplicata":              "numero_duplicata",
	"Data de Inclusão da NF":       "data_inclusao_nf",
	"Data de Emissão da NF":        "data_emissao_nf",
	"Descrição":                    "descricao",

	// Fornecedor
	"Razão Social do Fornecedor":   "razao_social_fornecedor",
	"CNPJ do Fornecedor":           "cnpj_fornecedor",
	"Status fornecedor":            "status_fornecedor",

	// Financiador
	"Razão Social do Financiador":  "razao_social_financiador",
	"CNPJ Financiador":             "cnpj_financiador",
	"Parceiro":                     "parceiro",

	// Valores e taxas
	"Valor Bruto da Duplicata":     "valor_bruto_duplicata",
	"Valor Líquido da Duplicata":   "valor_liquido_duplicata",
	"Desconto contrato":            "desconto_contrato",
	"Abatimento":                   "abatimento",
	"Deságio R$":                   "desagio_reais",
	"Tarifa R$":                    "tarifa_reais",
	"Ad Valorem R$":                "ad_valorem_reais",
	"IOF R$":                       "iof_reais",
	"Total de taxas R$":            "total_taxas_reais",
	"Liquido da Operação":          "liquido_operacao", // sem acento no cabeçalho

	// Taxas percentuais
	"Taxa ao mês %":                "taxa_mes_percentual",
	AdValoremPercentLabel:          "ad_valorem_percentual",
	"Taxa efetiva ao mês %":        "taxa_efetiva_mes_percentual",
	"Faixa de Taxa Cashforce":      "faixa_taxa_cashforce",

	// Pagamento
	"Forma de pagamento":           "forma_pagamento",
	"Vencimento":                   "vencimento",
	"Data de pagamento":            "data_pagamento",
	"Status de Pagamento":          "status_pagamento",
	"Data do Pagamento da Operação": "data_pagamento_operacao",
	"Data da Confirmação do Pagamento da Operação": "data_confirmacao_pagamento_operacao",

	// Antecipação
	"Status da Antecipação":        "status_antecipacao",

	// Prazos
	"Prazo":                        "prazo",
	"Prazo Médio da operação":      "prazo_medio_operacao",

	// Receita
	"Receita Cashforce":            "receita_cashforce",

	// Anexos
	"Termo anexado?":               "termo_anexado",
	"Boleto anexado?":              "boleto_anexado",
	"Comprovante de depósito?":     "comprovante_deposito",

	// Controle
	"Dia atual":                    "dia_atual",
}

// fieldTypes declares the semantic type of every canonical field. Adding a
// column to the sync means adding one entry here and one in columnMapping.
var fieldTypes = map[string]FieldType{
	"numero_proposta": TypeString,
	"status_proposta": TypeText,
	"data_operacao":   TypeDate,

	"data_aceite_proposta":   TypeDate,
	"grupo_economico":        TypeText,
	"razao_social_comprador": TypeText,
	"cnpj_comprador":         TypeString,
	"status_comprador":       TypeText,

	"nfid":               TypeString,
	"numero_nota_fiscal": TypeString,
	"tipo_nota":          TypeText,
	"numero_duplicata":   TypeString,
	"data_inclusao_nf":   TypeDate,
	"data_emissao_nf":    TypeDate,
	"descricao":          TypeString,

	"razao_social_fornecedor": TypeText,
	"cnpj_fornecedor":         TypeString,
	"status_fornecedor":       TypeText,

	"razao_social_financiador": TypeText,
	"cnpj_financiador":         TypeString,
	"parceiro":                 TypeText,

	"valor_bruto_duplicata":   TypeCurrency,
	"valor_liquido_duplicata": TypeCurrency,
	"desconto_contrato":       TypeCurrency,
	"abatimento":              TypeCurrency,
	"desagio_reais":           TypeCurrency,
	"tarifa_reais":            TypeCurrency,
	"ad_valorem_reais":        TypeCurrency,
	"iof_reais":               TypeCurrency,
	"total_taxas_reais":       TypeCurrency,
	"liquido_operacao":        TypeCurrency,

	"taxa_mes_percentual":         TypePercentage,
	"ad_valorem_percentual":       TypePercentage,
	"taxa_efetiva_mes_percentual": TypePercentage,
	"faixa_taxa_cashforce":        TypeText,

	"forma_pagamento":                     TypeText,
	"vencimento":                          TypeDate,
	"data_pagamento":                      TypeDate,
	"status_pagamento":                    TypeText,
	"data_pagamento_operacao":             TypeDate,
	"data_confirmacao_pagamento_operacao": TypeDate,

	"status_antecipacao": TypeText,

	"prazo":                TypeInteger,
	"prazo_medio_operacao": TypeInteger,

	"receita_cashforce": TypeCurrency,

	"termo_anexado":        TypeBoolean,
	"boleto_anexado":       TypeBoolean,
	"comprovante_deposito": TypeBoolean,

	"dia_atual": TypeDate,
}

// ValidateMapping checks the static tables for configuration mistakes: two
// source headers mapping to the same canonical field, or a canonical field
// without a declared type. Call it once at startup; a non-nil error is fatal.
func ValidateMapping() error {
	seen := make(map[string]string, len(columnMapping))
	for label, field := range columnMapping {
		if prev, dup := seen[field]; dup {
			return fmt.Errorf("column mapping: headers %q and %q both map to field %q", prev, label, field)
		}
		seen[field] = label
		if _, ok := fieldTypes[field]; !ok {
			return fmt.Errorf("column mapping: field %q has no declared type", field)
		}
	}
	for field := range fieldTypes {
		if _, ok := seen[field]; !ok {
			return fmt.Errorf("column mapping: field %q is typed but has no source header", field)
		}
	}
	return nil
}
