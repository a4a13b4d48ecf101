// Package catalog holds the static set of compliance-validation tasks run
// against a tender. The catalog is fixed at build time; there is no runtime
// update path.
package catalog

import "github.com/tenderscope/tenderscope/internal/model"

// tasks is ordered by id. Codes follow the H-xx hallazgo numbering used by
// the audit checklist the catalog was derived from; gaps in the numbering
// (H-16, H-20..H-30) are checks that cannot be validated from portal data.
var tasks = []model.InvestigationTask{
	{
		ID:          1,
		Code:        "H-01",
		Name:        "Existencia de Bases Administrativas y Bases Técnicas diferenciadas",
		Description: "Verificar que existan documentos o secciones diferenciadas como Bases Administrativas y Bases Técnicas.",
		WhereToLook: "Anexos y contenido de Bases",
		Severity:    model.SeverityCritical,
		Subtasks: []string{
			"Identificar documentos o secciones equivalentes a Bases Administrativas y Bases Técnicas.",
			"Verificar existencia de un acto que apruebe las Bases.",
		},
	},
	{
		ID:          2,
		Code:        "H-02",
		Name:        "Bases Técnicas describen claramente el bien o servicio",
		Description: "Verificar que las Bases Técnicas describan con parámetros verificables el objeto de la licitación.",
		WhereToLook: "Bases Técnicas",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Confirmar presencia de sección técnica explícita.",
			"Verificar cantidades, estándares, desempeño, etc.",
		},
	},
	{
		ID:          3,
		Code:        "H-03",
		Name:        "Bases Administrativas regulan etapas, plazos y criterios",
		Description: "Verificar que las Bases incluyan etapas del proceso, plazos, consultas, criterios y adjudicación.",
		WhereToLook: "Bases Administrativas",
		Severity:    model.SeverityCritical,
		Subtasks: []string{
			"Verificar que cada criterio tenga definición, descripción y escala de puntaje.",
			"Verificar presencia de etapas: publicación, consultas, oferta, apertura, evaluación, adjudicación.",
			"Verificar presencia de fechas y horas límite.",
			"Verificar si las consultas son canalizadas a través del sistema o otros medios.",
			"Verificar que se adelanten cláusulas esenciales del contrato.",
		},
	},
	{
		ID:          4,
		Code:        "H-04-2",
		Name:        "Extracción de monto",
		Description: "Extraer monto para clasificación UTM o monto directo dentro de la licitación.",
		WhereToLook: "Ficha/Bases",
		Severity:    model.SeverityMedium,
		Subtasks:    []string{},
	},
	{
		ID:          5,
		Code:        "H-05",
		Name:        "Presupuesto estimado declarado",
		Description: "Verificar existencia de presupuesto referencial.",
		WhereToLook: "Ficha/Bases",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Comparar montos de ficha y Bases.",
			"Verificar si incluye impuestos y moneda.",
		},
	},
	{
		ID:          6,
		Code:        "H-06",
		Name:        "Bases orientadas a combinación ventajosa de costo-beneficio",
		Description: "Verificar que no se use solo precio.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityMedium,
		Subtasks: []string{
			"Verificar que ponderaciones no privilegien precio casi 100%.",
		},
	},
	{
		ID:          7,
		Code:        "H-07",
		Name:        "Criterios técnicos y económicos claros con ponderaciones",
		Description: "Verificar criterios con peso, fórmula y reglas de puntaje.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Verificar que cada criterio tenga peso numérico.",
			"Verificar fórmulas/tabla.",
			"Verificar fórmula para asignar puntaje al precio.",
		},
	},
	{
		ID:          8,
		Code:        "H-08",
		Name:        "Criterios objetivos sin discrecionalidad excesiva",
		Description: "Verificar ausencia de criterios ambiguos como 'a exclusivo juicio'.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Detectar 'a exclusivo criterio', 'si se estima conveniente', etc.",
			"Verificar reglas para empates.",
		},
	},
	{
		ID:          9,
		Code:        "H-09",
		Name:        "Ausencia de diferencias arbitrarias entre oferentes",
		Description: "Detectar requisitos injustificados que favorezcan a alguien.",
		WhereToLook: "Bases Adm./Técnicas",
		Severity:    model.SeverityCritical,
		Subtasks: []string{
			"Detectar domicilio/localidad como requisito excluyente.",
			"Evaluar proporcionalidad con rubro y monto.",
			"Detectar marca única sin equivalentes.",
		},
	},
	{
		ID:          10,
		Code:        "H-10",
		Name:        "Tratamiento de ofertas temerarias o riesgosas",
		Description: "Verificar existencia de reglas para ofertas anormalmente bajas.",
		WhereToLook: "Bases/Informe",
		Severity:    model.SeverityMedium,
		Subtasks: []string{
			"Verificar criterios objetivos en Bases.",
			"Verificar si se pidió justificación al oferente.",
			"Verificar coherencia entre medidas y lo descrito en Bases.",
		},
	},
	{
		ID:          11,
		Code:        "H-11",
		Name:        "Servicios habituales deben incluir condiciones laborales",
		Description: "Verificar evaluación de condiciones laborales cuando sea intensivo en personal.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityCritical,
		Subtasks: []string{
			"Clasificar el tipo de servicio licitado.",
			"Verificar criterio sobre condiciones laborales.",
			"Verificar peso significativo del criterio.",
		},
	},
	{
		ID:          12,
		Code:        "H-12",
		Name:        "Preferencia local sin excluir a otros",
		Description: "Verificar que ser local no sea requisito excluyente.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Debe otorgar puntaje, no excluir.",
			"Verificar que el peso no desplace otros criterios.",
			"Detectar frases que excluyan indirectamente.",
		},
	},
	{
		ID:          13,
		Code:        "H-13",
		Name:        "Participación MIPYME no bloqueada",
		Description: "Evaluar si requisitos bloquean a pequeñas empresas.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Extraer patrimonio, facturación, etc.",
			"Comparar exigencias con monto del contrato.",
			"Comparar años/contratos requeridos.",
		},
	},
	{
		ID:          14,
		Code:        "H-14",
		Name:        "Existencia de criterio relacionado con integridad y compliance",
		Description: "Verificar criterio sobre integridad/cumplimiento normativo.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Verificar si el criterio está presente.",
			"Verificar que no sea simbólico.",
		},
	},
	{
		ID:          15,
		Code:        "H-15",
		Name:        "Cronograma completo descrito",
		Description: "Verificar hitos mínimos del proceso.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityLow,
		Subtasks: []string{
			"Verificar ocho hitos clave.",
			"Validar orden secuencial.",
			"Detectar contradicciones de fechas.",
		},
	},
	{
		ID:          16,
		Code:        "H-17",
		Name:        "Publicación de modificaciones/aclaraciones",
		Description: "Verificar que aclaraciones formen parte de Bases.",
		WhereToLook: "Ficha/Bases",
		Severity:    model.SeverityCritical,
		Subtasks: []string{
			"Verificar documentos como 'Modificación de Bases'.",
			"Verificar que se indiquen como parte integral.",
			"Emitidas con tiempo razonable previo al cierre.",
		},
	},
	{
		ID:          17,
		Code:        "H-18",
		Name:        "Uso del Registro de Proveedores",
		Description: "Verificar que el Registro se use para acreditar idoneidad.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityLow,
		Subtasks: []string{
			"Buscar referencia expresa.",
		},
	},
	{
		ID:          18,
		Code:        "H-19",
		Name:        "No exigencia de documentos redundantes",
		Description: "Verificar que no pidan documentos ya listados en Registro.",
		WhereToLook: "Bases Adm.",
		Severity:    model.SeverityLow,
		Subtasks: []string{
			"Listar documentos exigidos.",
			"Marcar documentos duplicados.",
		},
	},
	{
		ID:          19,
		Code:        "H-31",
		Name:        "Publicación del contrato y su aprobación",
		Description: "Verificar publicación del contrato y su aprobación administrativa.",
		WhereToLook: "Ficha/Contrato",
		Severity:    model.SeverityHigh,
		Subtasks: []string{
			"Revisar que contrato esté anexado.",
			"Verificar publicación de resolución que aprueba el contrato.",
		},
	},
}

// All returns the catalog in id order. Callers receive a fresh slice so the
// backing catalog stays immutable.
func All() []model.InvestigationTask {
	out := make([]model.InvestigationTask, len(tasks))
	copy(out, tasks)
	return out
}

// ByID returns the task with the given id, if present.
func ByID(id int) (model.InvestigationTask, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.InvestigationTask{}, false
}
